// Package i18n holds the translated labels shown by the admin and written
// into exports. Message keys are the English labels.
package i18n

import (
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/message/catalog"
)

var spanish = map[string]string{
	"Name":                            "Nombre",
	"Email":                           "Email",
	"Phone":                           "Teléfono",
	"Creation Date":                   "Fecha de Creación",
	"Contact":                         "Contacto",
	"Contacts":                        "Contactos",
	"All":                             "Todo",
	"Today":                           "Hoy",
	"Yesterday":                       "Ayer",
	"Last 7 days":                     "Últimos 7 días",
	"This month":                      "Este mes",
	"Last month":                      "Último mes",
	"Personal information":            "Información personal",
	"Additional information":          "Información adicional",
	"Export selected contacts to CSV": "Exportar contactos seleccionados a CSV",
	"This field is required.":         "Este campo es obligatorio.",
	"Enter a valid email address.":    "Introduzca una dirección de correo electrónico válida.",
}

var (
	cat       = build()
	supported = []language.Tag{language.English, language.Spanish}
	matcher   = language.NewMatcher(supported)
)

func build() catalog.Catalog {
	b := catalog.NewBuilder(catalog.Fallback(language.English))
	for key, translated := range spanish {
		_ = b.SetString(language.Spanish, key, translated)
		_ = b.SetString(language.English, key, key)
	}
	return b
}

// Printer returns a printer for the closest supported language to code
// (for example "es", "es-MX" or "en-US"). Unknown codes fall back to English.
func Printer(code string) *message.Printer {
	return message.NewPrinter(Match(code), message.Catalog(cat))
}

// Match resolves a language code to one of the supported tags.
func Match(code string) language.Tag {
	tag, err := language.Parse(code)
	if err != nil {
		return language.English
	}
	_, idx, conf := matcher.Match(tag)
	if conf == language.No {
		return language.English
	}
	return supported[idx]
}
