package booking

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	records "github.com/civibot-ba/backend/internal/model/records"
)

type mapping struct {
	keyword   string
	procedure string
}

// Keyword table mapping normalized reason fragments to the expected
// procedure name inside the department. Multi-word keywords are evaluated
// before single-word ones; within a pass, slice order decides. The
// precedence is load-bearing for ambiguous reasons, so do not reorder.
var reasonMappings = []mapping{
	// Registro Civil y DNI
	{"dni", "Solicitud de DNI"},
	{"documento", "Solicitud de DNI"},
	{"reposicion", "Solicitud de DNI"},
	{"extravio", "Solicitud de DNI"},
	{"perdi", "Solicitud de DNI"},
	{"partida", "Partidas de Nacimiento"},
	{"nacimiento", "Partidas de Nacimiento"},
	{"pasaporte", "Pasaporte"},
	// Licencias
	{"licencia", "Licencia de Conducir"},
	{"conducir", "Licencia de Conducir"},
	{"sacar licencia", "Licencia de Conducir"},
	{"renovacion", "Renovación de Licencia"},
	{"renovar", "Renovación de Licencia"},
	{"vencio", "Renovación de Licencia"},
	{"duplicado", "Duplicado de Licencia"},
	// Impuestos
	{"agip", "AGIP – Impuestos"},
	{"impuesto", "AGIP – Impuestos"},
	{"rentas", "AGIP – Impuestos"},
	{"habilitacion", "Habilitación Comercial"},
	{"habilitacion comercial", "Habilitación Comercial"},
	{"comercio", "Habilitación Comercial"},
}

var tokenSplitter = regexp.MustCompile(`[^a-z0-9]+`)

// SelectProcedure resolves a free-text reason to one of the department's
// procedures. Given a non-empty list it never fails: keyword table first
// (multi-word keywords, then single-word), token overlap second, first
// procedure in the list last.
func SelectProcedure(procedures []records.Procedure, reason string) records.Procedure {
	normalized := normalize(reason)

	if found, ok := matchByKeyword(procedures, normalized); ok {
		return found
	}
	if found, ok := matchByToken(procedures, normalized); ok {
		return found
	}
	return procedures[0]
}

// matchByKeyword scans the table in two passes. A keyword contained in the
// reason only wins if its expected procedure actually exists in the
// department; otherwise scanning continues.
func matchByKeyword(procedures []records.Procedure, reason string) (records.Procedure, bool) {
	for _, multiWord := range []bool{true, false} {
		for _, m := range reasonMappings {
			if strings.Contains(m.keyword, " ") != multiWord {
				continue
			}
			if !strings.Contains(reason, m.keyword) {
				continue
			}
			expected := normalize(m.procedure)
			for _, p := range procedures {
				if normalize(p.Name) == expected {
					return p, true
				}
			}
		}
	}
	return records.Procedure{}, false
}

// matchByToken picks the first procedure whose normalized name contains any
// reason token of length >= 3.
func matchByToken(procedures []records.Procedure, reason string) (records.Procedure, bool) {
	var tokens []string
	for _, token := range tokenSplitter.Split(reason, -1) {
		if len(token) >= 3 {
			tokens = append(tokens, token)
		}
	}

	for _, p := range procedures {
		name := normalize(p.Name)
		for _, token := range tokens {
			if strings.Contains(name, token) {
				return p, true
			}
		}
	}
	return records.Procedure{}, false
}

// normalize lowercases and strips diacritics so "perdí" matches "perdi".
func normalize(s string) string {
	fold := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(fold, strings.ToLower(s))
	if err != nil {
		return strings.ToLower(s)
	}
	return folded
}
