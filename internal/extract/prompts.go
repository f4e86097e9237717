package extract

import (
	"fmt"
	"strings"

	"github.com/salaheddineelazouti/Projet-innovation/internal/model"
)

// ReorderPhrases are the expressions customers use to ask for "the usual",
// in French, English and transliterated Darija. They are quoted to the
// classifier as examples.
var ReorderPhrases = []string{
	"comme d'habitude",
	"comme toujours",
	"même commande",
	"la même chose",
	"comme la dernière fois",
	"renouveler la commande",
	"same as usual",
	"same as last time",
	"the usual",
	"kif dima",
	"b7al dima",
	"bhal dima",
	"kima dima",
}

const classifierSystemPrompt = `Tu analyses des messages de clients d'un fabricant d'emballages. Tu réponds uniquement en JSON valide.`

// classifierPrompt asks whether content repeats a previous order and which
// client the body names.
func classifierPrompt(content string) string {
	quoted := make([]string, len(ReorderPhrases))
	for i, p := range ReorderPhrases {
		quoted[i] = `"` + p + `"`
	}

	return fmt.Sprintf(`Analyse ce message et détermine:
1. Est-ce une demande de RENOUVELLEMENT d'une commande habituelle?
   Expressions à détecter: %s, etc.

2. Quel est le nom de l'entreprise cliente MENTIONNÉE DANS LE CORPS du message?
   IMPORTANT: cherche le nom du CLIENT dans le CONTENU du message, PAS dans l'adresse ou la signature de l'expéditeur.
   Exemple: si le message dit "commande chhiwat fes" ou "pour société X", le client est "chhiwat fes" ou "société X".

Message:
%s

Réponds en JSON:
{
    "is_reorder": true/false,
    "reorder_indicators": ["expressions détectées"],
    "client_name": "nom du client dans le CONTENU (pas l'expéditeur), ou null",
    "confidence": 0-100
}

JSON uniquement:`, strings.Join(quoted, ", "), content)
}

const extractorSystemPrompt = `Tu es un expert en extraction de données de documents commerciaux. Tu réponds uniquement en JSON valide.`

// extractorPrompt asks for the full order record, constrained to the
// product catalog.
func extractorPrompt(content string) string {
	var catalog strings.Builder
	for i, p := range model.ProductCatalog {
		fmt.Fprintf(&catalog, "%d. %s\n", i+1, p)
	}

	return fmt.Sprintf(`Tu es un assistant spécialisé dans l'extraction de données de bons de commande.

L'entreprise fabrique %d types de produits d'emballage:
%s
Analyse le contenu suivant et extrais les informations du bon de commande.
Retourne les données au format JSON avec les champs suivants:
- numero_commande: string (numéro du bon de commande)
- entreprise_cliente: string (nom de l'entreprise qui passe la commande)
- type_produit: string (exactement un des types listés ci-dessus, ou null si non identifiable)
- nature_produit: string (détails spécifiques du produit)
- quantite: number (quantité commandée, sans unité)
- unite: string (unité de mesure: pièces, kg, etc.)
- date_commande: string (date du bon de commande)
- date_livraison: string (date de livraison souhaitée, si mentionnée)
- prix_unitaire: number (prix unitaire si mentionné)
- prix_total: number (prix total si mentionné)
- devise: string (EUR, MAD, USD, etc.)
- informations_supplementaires: string (autres informations pertinentes)
- confiance: number (niveau de confiance de 0 à 100)
- est_bon_commande: boolean (true si c'est bien un bon de commande)

Si une information n'est pas trouvée, utilise null. N'invente jamais un type de produit.

CONTENU À ANALYSER:
%s

Réponds UNIQUEMENT avec le JSON, sans texte additionnel.`, len(model.ProductCatalog), catalog.String(), content)
}
