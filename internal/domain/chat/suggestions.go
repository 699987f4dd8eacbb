package chat

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/manuasd05/weatherbot/internal/domain/weather"
)

var weekdayNames = [7]string{"domingo", "lunes", "martes", "miércoles", "jueves", "viernes", "sábado"}

// SuggestionInput selects the follow-up pool.
type SuggestionInput struct {
	Kind        weather.Kind
	Days        int
	StartOffset int
	MaxTemp     float64
	HeatTemp    float64
}

// Suggestions picks a pair of follow-up questions for the response prompt.
// The pool depends on the request shape; the pick within the pool is random
// so repeated queries do not read identically.
func Suggestions(in SuggestionInput, now time.Time, rng *rand.Rand) [2]string {
	today := int(now.Weekday())

	if in.HeatTemp > 0 && in.MaxTemp > in.HeatTemp {
		pool := [][2]string{
			{"¿Quieres saber cuándo refresca?", "¿Te ayudo con otra ciudad?"},
			{"¿Necesitas el pronóstico de la semana?", "¿Algo más?"},
			{"¿Quieres consejos para el calor?", "¿Necesitas algo más?"},
		}
		return pool[rng.Intn(len(pool))]
	}

	if in.Kind == weather.KindCurrent {
		pool := [][2]string{
			{"¿Y mañana?", "¿Necesitas algo más?"},
			{"¿Quieres el pronóstico de la semana?", "¿Te ayudo con otra ciudad?"},
			{"¿Cómo estará el fin de semana?", "¿Necesitas planear algo?"},
			{fmt.Sprintf("¿Y el %s?", weekdayNames[(today+1)%7]), "¿Algo más?"},
		}
		return pool[rng.Intn(len(pool))]
	}

	if in.Days == 1 {
		switch in.StartOffset {
		case 0:
			pool := [][2]string{
				{"¿Y mañana?", "¿Necesitas más detalles?"},
				{"¿Quieres el resto de la semana?", "¿Te ayudo con otra ciudad?"},
				{"¿Cómo estará mañana?", "¿Algo más?"},
			}
			return pool[rng.Intn(len(pool))]
		case 1:
			pool := [][2]string{
				{"¿Y pasado mañana?", "¿Necesitas algo más?"},
				{"¿Quieres toda la semana?", "¿Te ayudo con otra ciudad?"},
				{fmt.Sprintf("¿Cómo estará el %s?", weekdayNames[(today+2)%7]), "¿Algo más?"},
			}
			return pool[rng.Intn(len(pool))]
		default:
			prev := weekdayNames[(today+in.StartOffset-1+7)%7]
			next := weekdayNames[(today+in.StartOffset+1)%7]
			pool := [][2]string{
				{fmt.Sprintf("¿Y el %s?", next), "¿Algo más?"},
				{"¿Quieres toda la semana?", "¿Necesitas otra ciudad?"},
				{fmt.Sprintf("¿Te digo desde el %s?", prev), "¿Algo más?"},
			}
			return pool[rng.Intn(len(pool))]
		}
	}

	if in.Days >= 5 {
		pool := [][2]string{
			{"¿Quieres detalles de un día específico?", "¿Te ayudo con algo más?"},
			{"¿Necesitas el clima de otra ciudad?", "¿Algo más?"},
			{"¿Te ayudo a planear tu semana?", "¿Necesitas algo más?"},
		}
		return pool[rng.Intn(len(pool))]
	}

	pool := [][2]string{
		{"¿Quieres el resto de la semana?", "¿Algo más?"},
		{"¿Necesitas detalles de un día específico?", "¿Te ayudo con otra ciudad?"},
		{"¿Te extiendo el pronóstico?", "¿Algo más?"},
	}
	return pool[rng.Intn(len(pool))]
}
