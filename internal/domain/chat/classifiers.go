package chat

import (
	"regexp"
	"strings"
)

// Confirmation is the outcome of the yes/no classifier.
type Confirmation int

const (
	ConfirmationNone Confirmation = iota
	ConfirmationYes
	ConfirmationNo
)

var (
	// An explicit weather mention always overrides casual classification.
	reWeatherWord = regexp.MustCompile(`(?i)\b(clima|tiempo|temperatura|pron[oó]stico)\b`)

	casualPatterns = []*regexp.Regexp{
		regexp.MustCompile(`^(si|sí|ok|vale|claro|perfecto|genial|bien|bueno|dale)$`),
		regexp.MustCompile(`^(gracias|muchas gracias|excelente)$`),
		regexp.MustCompile(`^no,?\s+(gracias|nada|eso es todo)`),
	}

	metaPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)hasta (qué|que) (día|día|dias|días)`),
		regexp.MustCompile(`(?i)(cuántos|cuantos) (días|dias)`),
		regexp.MustCompile(`(?i)(qué|que) (días|dias) puedes`),
		regexp.MustCompile(`(?i)puedes (decirme|darme|mostrar)`),
		regexp.MustCompile(`(?i)(cuál|cual) es (tu|el) (límite|limite|rango)`),
	}

	weatherKeywords = []string{
		"clima", "tiempo", "temperatura", "pronóstico", "pronostico", "forecast",
		"va a llover", "llover", "lluvia", "hace calor", "hace frío", "hace frio",
		"qué tiempo", "que tiempo", "cómo está el", "como esta el",
		"dame el clima", "quiero saber el", "me das el clima", "me puedes dar",
		"dime el clima", "cómo estará", "como estara", "me das el",
		"puedes darme el clima", "dime cómo está", "paraguas", "abrigo",
	}

	temporalPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)(próximo|proximo) (lunes|martes|miércoles|miercoles|jueves|viernes|sábado|sabado|domingo)`),
		regexp.MustCompile(`(?i)para el (lunes|martes|miércoles|miercoles|jueves|viernes|sábado|sabado|domingo)`),
		regexp.MustCompile(`(?i)el (próximo|proximo) (lunes|martes|miércoles|miercoles|jueves|viernes|sábado|sabado|domingo)`),
		regexp.MustCompile(`(?i)clima del? (lunes|martes|miércoles|miercoles|jueves|viernes|sábado|sabado|domingo)`),
		regexp.MustCompile(`(?i)esta (noche|tarde|semana|madrugada)`),
		regexp.MustCompile(`(?i)por la (noche|tarde|mañana)`),
		regexp.MustCompile(`(?i)fin de semana`),
		regexp.MustCompile(`(?i)mañana por la`),
	}

	rePlans = regexp.MustCompile(`(?i)\b(cita|reuni[oó]n|salir|plan|voy|tengo que|ir[eé]|evento)\b`)

	yesWords = map[string]bool{
		"si": true, "sí": true, "sip": true, "claro": true, "dale": true,
		"ok": true, "vale": true, "por favor": true, "bueno": true, "perfecto": true,
	}
	noWords = map[string]bool{
		"no": true, "nop": true, "no gracias": true, "nada": true,
		"mejor no": true, "negativo": true,
	}

	// Connector and domain words discarded before guessing a bare city name.
	cityStopwords = map[string]bool{
		"el": true, "la": true, "los": true, "las": true, "de": true, "del": true,
		"en": true, "y": true, "a": true, "un": true, "una": true, "por": true,
		"para": true, "que": true, "qué": true, "me": true, "mi": true, "tu": true,
		"su": true, "es": true, "al": true, "lo": true, "se": true, "con": true,
		"o": true, "esta": true, "este": true, "hoy": true, "mañana": true,
		"semana": true, "noche": true, "tarde": true, "fin": true, "dame": true,
		"dime": true, "quiero": true, "saber": true,
	}
)

func normalize(message string) string {
	return strings.ToLower(strings.TrimSpace(message))
}

func stripPunctuation(s string) string {
	return strings.Trim(s, "¿?¡!.,;:\"'")
}

// IsCasualReply reports whether the message is a bare acknowledgement or
// thanks with no weather content.
func IsCasualReply(message string) bool {
	lower := normalize(message)
	if reWeatherWord.MatchString(lower) {
		return false
	}
	for _, pattern := range casualPatterns {
		if pattern.MatchString(lower) {
			return true
		}
	}
	return false
}

// ClassifyConfirmation resolves a yes/no answer to an open clarification.
func ClassifyConfirmation(message string) Confirmation {
	lower := normalize(message)
	lower = strings.ReplaceAll(lower, ",", " ")
	lower = strings.Join(strings.Fields(stripPunctuation(lower)), " ")
	if yesWords[lower] {
		return ConfirmationYes
	}
	if noWords[lower] {
		return ConfirmationNo
	}
	return ConfirmationNone
}

// IsMetaQuestion detects questions about the bot's own capabilities, which
// must not be treated as weather requests even when they mention days.
func IsMetaQuestion(message string) bool {
	for _, pattern := range metaPatterns {
		if pattern.MatchString(message) {
			return true
		}
	}
	return false
}

// IsWeatherRequest decides whether the message genuinely asks for weather:
// not casual, not meta, and carrying either a domain keyword or a temporal
// reference.
func IsWeatherRequest(message string) bool {
	if IsCasualReply(message) {
		return false
	}
	if IsMetaQuestion(message) {
		return false
	}
	lower := normalize(message)
	for _, pattern := range temporalPatterns {
		if pattern.MatchString(message) {
			return true
		}
	}
	for _, kw := range weatherKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

// ExtractBareCity guesses a city name from a near-bare message: one or two
// meaningful tokens left after dropping stopwords, at least one longer than
// two runes. Messages with explicit weather words are left to the full
// intent path. The result is a guess, never a proof.
func ExtractBareCity(message string) (string, bool) {
	lower := normalize(message)
	if lower == "" || reWeatherWord.MatchString(lower) {
		return "", false
	}

	var tokens []string
	for _, raw := range strings.Fields(lower) {
		token := stripPunctuation(raw)
		if token == "" || cityStopwords[token] {
			continue
		}
		tokens = append(tokens, token)
	}
	if len(tokens) == 0 || len(tokens) > 2 {
		return "", false
	}

	long := false
	for _, token := range tokens {
		if len([]rune(token)) > 2 {
			long = true
		}
	}
	if !long {
		return "", false
	}

	for i, token := range tokens {
		tokens[i] = titleCase(token)
	}
	return strings.Join(tokens, " "), true
}

func titleCase(token string) string {
	runes := []rune(token)
	if len(runes) == 0 {
		return token
	}
	return strings.ToUpper(string(runes[0])) + string(runes[1:])
}

// MentionsPlans detects commitment words so the response can acknowledge the
// user's plans.
func MentionsPlans(message string) bool {
	return rePlans.MatchString(message)
}

// Period names one within-day forecast reading.
type Period string

const (
	PeriodMorn  Period = "morn"
	PeriodDay   Period = "day"
	PeriodEve   Period = "eve"
	PeriodNight Period = "night"
)

type periodRule struct {
	pattern *regexp.Regexp
	periods []Period
}

// Ordered: compound tomorrow+period phrases first so "mañana por la noche"
// never matches the bare night rule. First hit wins.
var periodRules = []periodRule{
	{regexp.MustCompile(`mañana por la noche`), []Period{PeriodNight}},
	{regexp.MustCompile(`mañana por la tarde`), []Period{PeriodDay, PeriodEve}},
	{regexp.MustCompile(`mañana por la mañana`), []Period{PeriodMorn}},
	{regexp.MustCompile(`esta noche|por la noche|en la noche|al anochecer`), []Period{PeriodNight}},
	{regexp.MustCompile(`esta tarde|por la tarde|al atardecer`), []Period{PeriodDay, PeriodEve}},
	{regexp.MustCompile(`esta mañana|por la mañana|al amanecer`), []Period{PeriodMorn}},
	{regexp.MustCompile(`madrugada`), []Period{PeriodNight}},
}

// DetectPeriods maps day-part phrases onto the forecast sub-periods the user
// is actually asking about. Returns false when no phrase matches.
func DetectPeriods(message string) ([]Period, bool) {
	lower := normalize(message)
	for _, rule := range periodRules {
		if rule.pattern.MatchString(lower) {
			return rule.periods, true
		}
	}
	return nil, false
}
