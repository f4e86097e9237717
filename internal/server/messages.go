package server

import (
	"encoding/xml"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/salaheddineelazouti/Projet-innovation/internal/extract"
	"github.com/salaheddineelazouti/Projet-innovation/internal/intake"
	"github.com/salaheddineelazouti/Projet-innovation/internal/model"
)

type messageResponse struct {
	MessageID string             `json:"message_id"`
	Status    intake.Status      `json:"status"`
	Outcome   extract.Outcome    `json:"outcome,omitempty"`
	Order     *model.Order       `json:"order,omitempty"`
	Record    *model.OrderRecord `json:"record,omitempty"`
	Reply     string             `json:"reply"`
	Error     string             `json:"error,omitempty"`
}

func newMessageResponse(out *intake.Outcome) messageResponse {
	resp := messageResponse{
		MessageID: out.MessageID,
		Status:    out.Status(),
		Order:     out.Order,
		Reply:     out.Reply.Body,
	}
	if out.Result != nil {
		resp.Outcome = out.Result.Outcome
	}
	if out.Order == nil {
		resp.Record = out.Record()
	}
	if out.Err != nil {
		resp.Error = "no order could be extracted"
	}
	return resp
}

// handleMessage runs intake on a JSON message and acknowledges the sender.
func (s *Server) handleMessage(w http.ResponseWriter, r *http.Request) {
	var msg model.Message
	if err := s.decodeJSON(w, r, &msg, false); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if strings.TrimSpace(msg.Body) == "" && len(msg.Attachments) == 0 {
		writeError(w, http.StatusBadRequest, "body or attachments required")
		return
	}
	if msg.Source == "" {
		msg.Source = model.SourceAPI
	}
	if msg.Date == "" {
		msg.Date = time.Now().Format(time.RFC3339)
	}
	// Server-side paths are never read on behalf of API callers.
	for i := range msg.Attachments {
		msg.Attachments[i].Path = ""
	}

	out, err := s.intake.Handle(r.Context(), msg)
	if err != nil {
		zap.L().Error("server: intake failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "could not save order")
		return
	}

	status := http.StatusOK
	if out.Order != nil {
		status = http.StatusCreated
	}
	writeJSON(w, status, newMessageResponse(out))
}

type twiml struct {
	XMLName xml.Name `xml:"Response"`
	Message string   `xml:"Message,omitempty"`
}

func writeTwiML(w http.ResponseWriter, msg string) {
	w.Header().Set("Content-Type", "text/xml; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	body, err := xml.Marshal(twiml{Message: msg})
	if err != nil {
		zap.L().Error("server: encode twiml", zap.Error(err))
		return
	}
	_, _ = w.Write([]byte(xml.Header))
	_, _ = w.Write(body)
}

// handleWhatsApp receives a Twilio WhatsApp webhook. The acknowledgement
// is returned as TwiML and Twilio delivers it, so nothing is sent through
// the REST API here.
func (s *Server) handleWhatsApp(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxBodyBytes)
	if err := r.ParseForm(); err != nil {
		writeError(w, http.StatusBadRequest, "invalid form")
		return
	}

	from := r.PostForm.Get("From")
	body := strings.TrimSpace(r.PostForm.Get("Body"))
	if from == "" || body == "" {
		zap.L().Debug("server: empty whatsapp message ignored", zap.String("from", from))
		writeTwiML(w, "")
		return
	}

	msg := model.Message{
		ID:      r.PostForm.Get("MessageSid"),
		Source:  model.SourceWhatsApp,
		Subject: "Message WhatsApp",
		From:    from,
		Date:    time.Now().Format(time.RFC3339),
		Body:    body,
	}
	if name := r.PostForm.Get("ProfileName"); name != "" {
		msg.Subject += " de " + name
	}

	out, err := s.intake.Process(r.Context(), msg)
	if err != nil {
		zap.L().Error("server: whatsapp intake failed", zap.String("from", from), zap.Error(err))
		writeTwiML(w, "Une erreur est survenue lors de l'enregistrement de votre commande. Veuillez réessayer plus tard.")
		return
	}
	writeTwiML(w, out.Reply.Body)
}
