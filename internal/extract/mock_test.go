package extract

import (
	"context"
	"strings"

	"github.com/stretchr/testify/mock"

	"github.com/salaheddineelazouti/Projet-innovation/internal/llm"
	"github.com/salaheddineelazouti/Projet-innovation/internal/model"
)

type mockCompleter struct {
	mock.Mock
}

func (m *mockCompleter) Complete(ctx context.Context, req llm.Request) (string, error) {
	args := m.Called(ctx, req)
	return args.String(0), args.Error(1)
}

func step(name string) any {
	return mock.MatchedBy(func(req llm.Request) bool { return req.Step == name })
}

// fakeHistory is an in-memory store.HistoryReader.
type fakeHistory struct {
	names     []string
	validated map[string]*model.Order
	latest    map[string]*model.Order
	err       error
}

func (f *fakeHistory) ListClientNames(context.Context) ([]string, error) {
	return f.names, f.err
}

func (f *fakeHistory) LatestValidatedOrder(_ context.Context, name string) (*model.Order, error) {
	return f.validated[name], nil
}

func (f *fakeHistory) LatestOrder(_ context.Context, name string) (*model.Order, error) {
	return f.latest[name], nil
}

func message(body string) model.Message {
	return model.Message{
		ID:      "msg-1",
		Source:  model.SourceEmail,
		Subject: "Commande",
		From:    "contact@example.ma",
		Date:    "2024-06-03",
		Body:    body,
	}
}

func promptContains(s string) any {
	return mock.MatchedBy(func(req llm.Request) bool { return strings.Contains(req.Prompt, s) })
}
