// Package notify sends acknowledgements and review decisions back to the
// customer on the channel the order arrived on.
package notify

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/salaheddineelazouti/Projet-innovation/internal/model"
)

// Text is one outbound message. Email uses both fields; WhatsApp only Body.
type Text struct {
	Subject string
	Body    string
}

const notAvailable = "N/A"

// Reference is how an order is named to the customer.
func Reference(o *model.Order) string {
	if o.OrderNumber != nil && strings.TrimSpace(*o.OrderNumber) != "" {
		return *o.OrderNumber
	}
	return "CMD-" + o.ID
}

func product(r *model.OrderRecord) string {
	if r.ProductType != nil && *r.ProductType != "" {
		return string(*r.ProductType)
	}
	if r.ProductDescription != nil && *r.ProductDescription != "" {
		return *r.ProductDescription
	}
	return notAvailable
}

func quantity(r *model.OrderRecord) string {
	if r.Quantity == nil {
		return notAvailable
	}
	q := strconv.FormatFloat(*r.Quantity, 'f', -1, 64)
	if r.Unit != nil && *r.Unit != "" {
		q += " " + *r.Unit
	}
	return q
}

func client(r *model.OrderRecord) string {
	if r.ClientName == "" {
		return "Cher client"
	}
	return r.ClientName
}

// ReceivedText acknowledges a new order awaiting review.
func ReceivedText(company string, o *model.Order) Text {
	ref := Reference(o)
	return Text{
		Subject: fmt.Sprintf("Commande reçue %s - %s", ref, company),
		Body: fmt.Sprintf(`Commande reçue !

Bonjour %s,

Nous avons bien reçu votre demande de commande.
- Référence: %s
- Produit: %s
- Quantité: %s

Votre commande est en attente de validation par notre équipe commerciale.

%s`, client(&o.OrderRecord), ref, product(&o.OrderRecord), quantity(&o.OrderRecord), company),
	}
}

// ValidatedText confirms an order.
func ValidatedText(company string, o *model.Order) Text {
	ref := Reference(o)
	delivery := "À confirmer"
	if o.DeliveryDate != nil && *o.DeliveryDate != "" {
		delivery = *o.DeliveryDate
	}
	return Text{
		Subject: fmt.Sprintf("Confirmation de votre commande %s - %s", ref, company),
		Body: fmt.Sprintf(`Commande validée

Bonjour %s,

Votre commande a été validée et est en cours de préparation.
- Référence: %s
- Produit: %s
- Quantité: %s
- Livraison estimée: %s

Merci pour votre confiance,
%s`, client(&o.OrderRecord), ref, product(&o.OrderRecord), quantity(&o.OrderRecord), delivery, company),
	}
}

// RejectedText tells the customer the order could not be accepted as is.
func RejectedText(company string, o *model.Order, reason string) Text {
	ref := Reference(o)
	var sb strings.Builder
	fmt.Fprintf(&sb, `Commande non validée

Bonjour %s,

Après examen, nous ne sommes pas en mesure de valider cette commande en l'état.
- Référence: %s
- Produit: %s
- Quantité: %s
`, client(&o.OrderRecord), ref, product(&o.OrderRecord), quantity(&o.OrderRecord))
	if reason = strings.TrimSpace(reason); reason != "" {
		fmt.Fprintf(&sb, "- Motif: %s\n", reason)
	}
	fmt.Fprintf(&sb, "\nVeuillez nous contacter pour plus d'informations.\n\n%s", company)

	return Text{
		Subject: fmt.Sprintf("Information concernant votre demande %s - %s", ref, company),
		Body:    sb.String(),
	}
}

// FallbackText asks the sender to restate a message no order could be
// read from.
func FallbackText(company string) Text {
	return Text{
		Subject: fmt.Sprintf("Votre message - %s", company),
		Body:    "Message reçu. Si vous souhaitez passer une commande, veuillez préciser les détails (client, produit, quantité).",
	}
}
