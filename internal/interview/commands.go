package interview

import (
	"fmt"
	"strings"
)

// Slash command names.
const (
	CommandStart       = "start"
	CommandNext        = "next"
	CommandInstruction = "instruction"
	CommandTest        = "test"
	CommandHelp        = "help"
)

// OptionText is the name of the string option taken by the configure commands.
const OptionText = "text"

// CommandSpec describes a slash command for registration.
type CommandSpec struct {
	Name        string
	Description string
	Options     []OptionSpec
}

// OptionSpec describes a string option of a slash command.
type OptionSpec struct {
	Name        string
	Description string
	Required    bool
}

// Commands returns the slash commands the bot registers at startup.
func Commands() []CommandSpec {
	return []CommandSpec{
		{Name: CommandStart, Description: "Démarre l'entretien !"},
		{Name: CommandNext, Description: "Passe à la question suivante."},
		{
			Name:        CommandInstruction,
			Description: "Remplace les instructions de l'entretien et le redémarre.",
			Options: []OptionSpec{{
				Name:        OptionText,
				Description: "Nouvelles instructions",
				Required:    true,
			}},
		},
		{
			Name:        CommandTest,
			Description: "Ajoute une consigne système et demande une réponse.",
			Options: []OptionSpec{{
				Name:        OptionText,
				Description: "Consigne à ajouter",
				Required:    true,
			}},
		},
		{Name: CommandHelp, Description: "Affiche l'aide."},
	}
}

// User-facing notices.
const (
	noticeProcessing         = "Traitement en cours..."
	noticeNotStarted         = "L'entretien n'a pas encore commencé !"
	noticeBusy               = "Une réponse est déjà en cours de génération, patientez."
	noticeStartFailed        = "Une erreur est survenue lors du démarrage de l'entretien."
	noticeNextFailed         = "Une erreur est survenue lors de la poursuite de l'entretien."
	noticeMessageFailed      = "Une erreur est survenue lors du traitement de votre message."
	noticeInstructionUpdated = "Instructions mises à jour. L'entretien repart de zéro : utilisez /next pour obtenir la première question."
	noticeEmptyText          = "Le texte ne peut pas être vide."
	noticeEmptyReply         = "(réponse vide)"
)

// helpText lists the registered commands, one per line.
func helpText() string {
	var b strings.Builder
	b.WriteString("Commandes disponibles :\n")
	for _, c := range Commands() {
		fmt.Fprintf(&b, "• /%s", c.Name)
		for _, o := range c.Options {
			fmt.Fprintf(&b, " <%s>", o.Name)
		}
		fmt.Fprintf(&b, " : %s\n", c.Description)
	}
	return strings.TrimRight(b.String(), "\n")
}
