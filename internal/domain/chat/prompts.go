package chat

import (
	"fmt"
	"strings"
	"time"

	"github.com/manuasd05/weatherbot/internal/domain/weather"
)

var monthNames = [12]string{
	"enero", "febrero", "marzo", "abril", "mayo", "junio",
	"julio", "agosto", "septiembre", "octubre", "noviembre", "diciembre",
}

func spanishDate(now time.Time) string {
	return fmt.Sprintf("%s, %d de %s de %d",
		weekdayNames[int(now.Weekday())], now.Day(), monthNames[now.Month()-1], now.Year())
}

func spanishShortDate(t time.Time) string {
	return fmt.Sprintf("%d %s", t.Day(), monthNames[t.Month()-1][:3])
}

// SystemPrompt builds the intent-resolution system message. It anchors the
// model on today's date and gives it a literal weekday-to-offset table so
// "el próximo viernes" resolves to the right start_from value.
func SystemPrompt(now time.Time) string {
	today := int(now.Weekday())

	var table strings.Builder
	for target := 0; target < 7; target++ {
		offset := (target - today + 7) % 7
		fmt.Fprintf(&table, "  %-10s → start_from: %d\n", weekdayNames[target], offset)
	}

	return fmt.Sprintf(`Eres WeatherBot, un asistente meteorológico conversacional y útil.

CONTEXTO ACTUAL

HOY ES: %s (día %d de la semana)

TABLA PARA ESTA SEMANA (HOY = %s):
%s
REGLAS DE INTERPRETACIÓN

GENERA JSON cuando el usuario EXPLÍCITAMENTE pide clima:
   • "clima de/para/del [día/ciudad]"
   • "qué tiempo hace/hará"
   • "dame el clima"
   • "me puedes dar el clima"
   • "para el próximo [día]"
   • "clima del [día]"

NO GENERES JSON para preguntas SOBRE tus capacidades:
   • "hasta qué día puedes decirme"
   • "cuántos días puedes mostrar"
   • "qué días puedes dar"

   Para estas, responde conversacionalmente: "Puedo darte el pronóstico de los próximos 7 días"

CASOS ESPECIALES - PLANES + CLIMA:
   Si el usuario menciona planes Y pide clima en el MISMO mensaje:
   • Ejemplo: "mañana tengo una cita, me das el clima"
   • Ejemplo: "el lunes voy al parque, cómo estará el tiempo"

   SIEMPRE genera JSON para buscar el clima

FORMATO DE RESPUESTA:

NUNCA menciones JSON al usuario.
El JSON es SOLO para el sistema, el usuario NO lo ve.

CLIMA ACTUAL:
{"needs_weather":true,"city":"ciudad","type":"current"}

PRONÓSTICO DÍA ESPECÍFICO:
{"needs_weather":true,"city":"ciudad","type":"forecast","days_count":1,"start_from":N}

PRONÓSTICO MÚLTIPLES DÍAS:
{"needs_weather":true,"city":"ciudad","type":"forecast","days_count":N,"start_from":0}

PERSONALIDAD:
- Natural y conversacional
- Reconoce cuando el usuario pide clima aunque mencione otras cosas
- Nunca sugieras buscar en internet, TÚ tienes el clima
- Nunca menciones JSON al usuario`,
		spanishDate(now), today, strings.ToUpper(weekdayNames[today]), table.String())
}

// CasualSystemPrompt steers the small-talk path.
const CasualSystemPrompt = "Eres un asistente amigable y conversacional. Responde de forma natural."

// ClarificationPrompt asks the model to redirect a duplicate request instead
// of repeating data the user already has.
func ClarificationPrompt(city, userMessage string) string {
	return fmt.Sprintf(`El usuario ya tiene información del clima de %s.

NO busques clima otra vez. Pregúntale amablemente si quiere:
- Información de otro día
- Información de otra ciudad
- Más detalles

Mensaje del usuario: "%s"

Responde en máximo 2 líneas, de forma amigable y variada.`, city, userMessage)
}

// ResponseContext carries the flags the second model call should react to.
type ResponseContext struct {
	PlansMentioned bool
	TimeContext    TimeContext
	Suggestions    [2]string
}

// CurrentResponsePrompt builds the generative prompt for a current-weather
// answer.
func CurrentResponsePrompt(snap *weather.Snapshot, city, userMessage string, rc ResponseContext) string {
	var b strings.Builder
	fmt.Fprintf(&b, "El usuario preguntó sobre el clima ACTUAL en %s.\n", city)
	if rc.PlansMentioned {
		b.WriteString("\nEl usuario mencionó planes, sé empático y útil con recomendaciones.\n")
	}
	fmt.Fprintf(&b, `
Datos del clima en este momento:
- Ciudad: %s, %s
- Temperatura: %.0f°C (sensación: %.0f°C)
- Descripción: %s
- Humedad: %d%%
- Viento: %.0f km/h
- Nubosidad: %d%%

Contexto horario: %s

Mensaje original del usuario: "%s"

Genera una respuesta que:
1. %s
2. Presente los datos conversacionalmente
3. Dé 1-2 recomendaciones útiles %s
4. Termine con UNA de estas preguntas (elige la más natural):
   - "%s"
   - "%s"

IMPORTANTE:
- NUNCA menciones "JSON" o "formato JSON" al usuario
- Sé natural, amigable y varía tu respuesta`,
		snap.City, snap.Country, snap.Temp, snap.FeelsLike, snap.Description,
		snap.Humidity, snap.WindSpeed, snap.Clouds,
		rc.TimeContext.Describe(), userMessage,
		planStep(rc.PlansMentioned, "Use emoji apropiado"),
		planNote(rc.PlansMentioned),
		rc.Suggestions[0], rc.Suggestions[1])
	return b.String()
}

// ForecastResponsePrompt builds the generative prompt for a forecast answer.
func ForecastResponsePrompt(fc *weather.Forecast, city, userMessage string, days, startOffset int, now time.Time, rc ResponseContext) string {
	today := int(now.Weekday())

	show := days
	if show > len(fc.Days) {
		show = len(fc.Days)
	}

	var info strings.Builder
	for i := 0; i < show; i++ {
		day := fc.Days[i]
		realIndex := startOffset + i
		if i > 0 {
			info.WriteString("\n\n")
		}
		fmt.Fprintf(&info, `%s (%s):
- Temperatura: %.0f°C a %.0f°C
- Mañana: %.0f°C, Tarde: %.0f°C, Noche: %.0f°C
- Clima: %s
- Prob. lluvia: %.0f%%
- Humedad: %d%%
- Viento: %.0f km/h`,
			dayLabel(realIndex, today), spanishShortDate(time.Unix(day.Date, 0)),
			day.TempMin, day.TempMax,
			day.Temp.Morn, day.Temp.Day, day.Temp.Night,
			day.Description, day.RainProb*100, day.Humidity, day.WindSpeed)
	}

	singleDay := days == 1
	var contextType string
	switch {
	case singleDay && startOffset == 0:
		contextType = "SOLO de HOY"
	case singleDay && startOffset == 1:
		contextType = "SOLO de MAÑANA"
	case singleDay:
		contextType = fmt.Sprintf("SOLO del %s", strings.ToUpper(weekdayNames[(today+startOffset)%7]))
	default:
		contextType = fmt.Sprintf("de %d días", days)
	}

	focus := "Da un resumen general + detalles por día"
	if singleDay {
		focus = "Enfócate EN ESE DÍA ESPECÍFICO con detalles útiles"
	}

	var plans string
	if rc.PlansMentioned {
		plans = "\nEl usuario mencionó planes, sé empático y útil con recomendaciones relevantes.\n"
	}

	return fmt.Sprintf(`HOY ES: %s.

El usuario preguntó sobre el pronóstico %s en %s.
%s
Pronóstico:

%s

Contexto horario: %s

Mensaje original del usuario: "%s"

Genera una respuesta que:
1. %s
2. %s
3. Da 1-2 recomendaciones %s
4. Termina con UNA de estas preguntas (elige la más natural):
   - "%s"
   - "%s"

IMPORTANTE:
- NUNCA menciones "JSON" o "formato JSON" al usuario
- Sé natural, conversacional y varía tu estilo de respuesta
- Presenta la información de forma fluida y amigable`,
		spanishDate(now), contextType, city, plans, info.String(),
		rc.TimeContext.Describe(), userMessage,
		planStep(rc.PlansMentioned, "Use emoji apropiado"), focus,
		planRecs(rc.PlansMentioned),
		rc.Suggestions[0], rc.Suggestions[1])
}

func planStep(plans bool, fallback string) string {
	if plans {
		return "Primero reconozca sus planes brevemente"
	}
	return fallback
}

func planNote(plans bool) string {
	if plans {
		return "relacionadas con sus planes"
	}
	return ""
}

func planRecs(plans bool) string {
	if plans {
		return "relacionadas con sus planes"
	}
	return "prácticas"
}

func dayLabel(realIndex, today int) string {
	switch realIndex {
	case 0:
		return "Hoy"
	case 1:
		return "Mañana"
	case 2:
		return "Pasado mañana"
	default:
		return titleCase(weekdayNames[(today+realIndex)%7])
	}
}
