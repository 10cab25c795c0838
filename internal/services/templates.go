package services

import (
	"strings"

	"golang.org/x/text/language"
)

// Coordination event types. One per notifiable state transition.
const (
	EventVolunteerOffered    = "request.volunteer_offered"
	EventVolunteerWithdrawn  = "request.volunteer_withdrawn"
	EventNominated           = "request.nominated"
	EventNominationConfirmed = "request.nomination_confirmed"
	EventNominationDeclined  = "request.nomination_declined"
	EventVolunteerAccepted   = "request.volunteer_accepted"
	EventReopened            = "request.reopened"
	EventCancelled           = "request.cancelled"
	EventExpired             = "request.expired"
)

// templateSet holds the short in-app line and the longer email rendering for
// one event type in one language. Placeholders: {actor}, {date}, {start},
// {end}.
type templateSet struct {
	App     string
	Subject string
	Body    string
}

var templateCatalog = map[string]map[string]templateSet{
	EventVolunteerOffered: {
		"en": {
			App:     "{actor} volunteered to cover your {date} shift.",
			Subject: "A volunteer offered to cover your shift",
			Body:    "<p>{actor} offered to cover your shift on {date} ({start}&ndash;{end}).</p><p>Open the schedule to accept the offer.</p>",
		},
		"es": {
			App:     "{actor} se ofreció a cubrir tu turno del {date}.",
			Subject: "Alguien se ofreció a cubrir tu turno",
			Body:    "<p>{actor} se ofreció a cubrir tu turno del {date} ({start}&ndash;{end}).</p><p>Abre el calendario para aceptar la oferta.</p>",
		},
	},
	EventVolunteerWithdrawn: {
		"en": {
			App:     "{actor} withdrew their offer for your {date} shift.",
			Subject: "A volunteer withdrew their offer",
			Body:    "<p>{actor} withdrew their offer to cover your shift on {date} ({start}&ndash;{end}).</p>",
		},
		"es": {
			App:     "{actor} retiró su oferta para tu turno del {date}.",
			Subject: "Un voluntario retiró su oferta",
			Body:    "<p>{actor} retiró su oferta de cubrir tu turno del {date} ({start}&ndash;{end}).</p>",
		},
	},
	EventNominated: {
		"en": {
			App:     "{actor} asked you to cover their {date} shift.",
			Subject: "You were asked to cover a shift",
			Body:    "<p>{actor} asked you to cover their shift on {date} ({start}&ndash;{end}).</p><p>Please confirm or decline in the schedule.</p>",
		},
		"es": {
			App:     "{actor} te pidió cubrir su turno del {date}.",
			Subject: "Te pidieron cubrir un turno",
			Body:    "<p>{actor} te pidió cubrir su turno del {date} ({start}&ndash;{end}).</p><p>Confirma o rechaza en el calendario.</p>",
		},
	},
	EventNominationConfirmed: {
		"en": {
			App:     "{actor} confirmed they will cover your {date} shift.",
			Subject: "Your shift is covered",
			Body:    "<p>{actor} confirmed they will cover your shift on {date} ({start}&ndash;{end}).</p>",
		},
		"es": {
			App:     "{actor} confirmó que cubrirá tu turno del {date}.",
			Subject: "Tu turno está cubierto",
			Body:    "<p>{actor} confirmó que cubrirá tu turno del {date} ({start}&ndash;{end}).</p>",
		},
	},
	EventNominationDeclined: {
		"en": {
			App:     "{actor} declined to cover your {date} shift; the request is open again.",
			Subject: "Your coverage request was declined",
			Body:    "<p>{actor} declined to cover your shift on {date} ({start}&ndash;{end}).</p><p>The request is open for volunteers again.</p>",
		},
		"es": {
			App:     "{actor} rechazó cubrir tu turno del {date}; la solicitud está abierta de nuevo.",
			Subject: "Tu solicitud de cobertura fue rechazada",
			Body:    "<p>{actor} rechazó cubrir tu turno del {date} ({start}&ndash;{end}).</p><p>La solicitud vuelve a estar abierta.</p>",
		},
	},
	EventVolunteerAccepted: {
		"en": {
			App:     "{actor} accepted your offer: you cover the {date} shift.",
			Subject: "Your offer was accepted",
			Body:    "<p>{actor} accepted your offer. You are covering the shift on {date} ({start}&ndash;{end}).</p>",
		},
		"es": {
			App:     "{actor} aceptó tu oferta: cubres el turno del {date}.",
			Subject: "Tu oferta fue aceptada",
			Body:    "<p>{actor} aceptó tu oferta. Cubrirás el turno del {date} ({start}&ndash;{end}).</p>",
		},
	},
	EventReopened: {
		"en": {
			App:     "{actor} can no longer cover your {date} shift; the request is open again.",
			Subject: "Your shift coverage fell through",
			Body:    "<p>{actor} can no longer cover your shift on {date} ({start}&ndash;{end}).</p><p>The request is open for volunteers again.</p>",
		},
		"es": {
			App:     "{actor} ya no puede cubrir tu turno del {date}; la solicitud está abierta de nuevo.",
			Subject: "La cobertura de tu turno se canceló",
			Body:    "<p>{actor} ya no puede cubrir tu turno del {date} ({start}&ndash;{end}).</p><p>La solicitud vuelve a estar abierta.</p>",
		},
	},
	EventCancelled: {
		"en": {
			App:     "The coverage request for the {date} shift was cancelled.",
			Subject: "A coverage request was cancelled",
			Body:    "<p>The coverage request for the shift on {date} ({start}&ndash;{end}) was cancelled by the requester.</p>",
		},
		"es": {
			App:     "La solicitud de cobertura para el turno del {date} fue cancelada.",
			Subject: "Se canceló una solicitud de cobertura",
			Body:    "<p>La solicitud de cobertura para el turno del {date} ({start}&ndash;{end}) fue cancelada por el solicitante.</p>",
		},
	},
	EventExpired: {
		"en": {
			App:     "Your coverage request for the {date} shift expired without a substitute.",
			Subject: "Your coverage request expired",
			Body:    "<p>Your coverage request for the shift on {date} ({start}&ndash;{end}) passed without a substitute and was closed.</p>",
		},
		"es": {
			App:     "Tu solicitud de cobertura para el turno del {date} venció sin sustituto.",
			Subject: "Tu solicitud de cobertura venció",
			Body:    "<p>Tu solicitud de cobertura para el turno del {date} ({start}&ndash;{end}) pasó sin sustituto y fue cerrada.</p>",
		},
	},
}

// renderTemplates resolves the catalog entry for an event and locale, filling
// the placeholders. Unknown locales fall back to English.
func renderTemplates(eventType string, loc language.Tag, actor, date, start, end string) templateSet {
	byLocale, ok := templateCatalog[eventType]
	if !ok {
		return templateSet{}
	}

	base, _ := loc.Base()
	set, ok := byLocale[base.String()]
	if !ok {
		set = byLocale["en"]
	}

	r := strings.NewReplacer(
		"{actor}", actor,
		"{date}", date,
		"{start}", start,
		"{end}", end,
	)
	return templateSet{
		App:     r.Replace(set.App),
		Subject: r.Replace(set.Subject),
		Body:    r.Replace(set.Body),
	}
}
