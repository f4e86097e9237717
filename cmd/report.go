package main

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/salaheddineelazouti/Projet-innovation/internal/extract"
	"github.com/salaheddineelazouti/Projet-innovation/internal/intake"
	"github.com/salaheddineelazouti/Projet-innovation/internal/model"
)

// outcomeView is the printed form of an intake outcome.
type outcomeView struct {
	MessageID string             `json:"message_id"`
	Status    intake.Status      `json:"status"`
	Outcome   extract.Outcome    `json:"outcome,omitempty"`
	OrderID   string             `json:"order_id,omitempty"`
	Record    *model.OrderRecord `json:"record,omitempty"`
	Reply     string             `json:"reply,omitempty"`
	Error     string             `json:"error,omitempty"`
}

func viewOf(out *intake.Outcome) outcomeView {
	v := outcomeView{
		MessageID: out.MessageID,
		Status:    out.Status(),
		Record:    out.Record(),
		Reply:     out.Reply.Body,
	}
	if out.Result != nil {
		v.Outcome = out.Result.Outcome
	}
	if out.Order != nil {
		v.OrderID = out.Order.ID
		v.Record = &out.Order.OrderRecord
	}
	if out.Err != nil {
		v.Error = out.Err.Error()
	}
	return v
}

func writeOutcomesJSON(w io.Writer, outs []*intake.Outcome) error {
	views := make([]outcomeView, len(outs))
	for i, o := range outs {
		views[i] = viewOf(o)
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if len(views) == 1 {
		return enc.Encode(views[0])
	}
	return enc.Encode(views)
}

func formatOutcomes(w io.Writer, outs []*intake.Outcome) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "MESSAGE\tSTATUS\tOUTCOME\tCLIENT\tPRODUCT\tCONFIDENCE")
	for _, o := range outs {
		v := viewOf(o)
		client, product, confidence := "-", "-", "-"
		if v.Record != nil {
			if v.Record.ClientName != "" {
				client = v.Record.ClientName
			}
			if v.Record.ProductType != nil {
				product = string(*v.Record.ProductType)
			}
			confidence = fmt.Sprintf("%d", v.Record.Confidence)
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n", v.MessageID, v.Status, orDash(string(v.Outcome)), client, product, confidence)
	}
	_ = tw.Flush()
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
