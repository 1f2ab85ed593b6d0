package vapi

import (
	"fmt"
	"strings"
	"time"

	"github.com/example/forkbridge/internal/domain/reservation"
)

var (
	weekdays   = [...]string{"domingo", "lunes", "martes", "miércoles", "jueves", "viernes", "sábado"}
	monthNames = [...]string{"enero", "febrero", "marzo", "abril", "mayo", "junio", "julio", "agosto", "septiembre", "octubre", "noviembre", "diciembre"}
)

func weekday(t time.Time) string   { return weekdays[t.Weekday()] }
func monthName(t time.Time) string { return monthNames[t.Month()-1] }

// DateContext is the system prompt injected at the start of each call so the
// assistant resolves relative dates against the restaurant's calendar.
func DateContext(now time.Time, functionName string) string {
	if functionName == "" {
		functionName = DefaultAvailabilityFunction
	}
	day, month, year, wd := now.Day(), monthName(now), now.Year(), weekday(now)
	iso := now.Format(isoDate)

	var b strings.Builder
	fmt.Fprintf(&b, "\n=== INFORMACIÓN DE FECHA Y HORA ACTUAL ===\n")
	fmt.Fprintf(&b, "FECHA DE HOY: %s, %d de %s de %d\n", wd, day, month, year)
	fmt.Fprintf(&b, "FECHA EN FORMATO ISO: %s\n", iso)
	fmt.Fprintf(&b, "AÑO ACTUAL: %d\n\n", year)
	fmt.Fprintf(&b, "REGLAS CRÍTICAS PARA MANEJO DE FECHAS:\n")
	fmt.Fprintf(&b, "1. Cuando el usuario mencione una fecha SIN especificar el año (ejemplos: \"3 de diciembre\", \"el viernes\", \"mañana\", \"la próxima semana\"), SIEMPRE asume el año %d.\n", year)
	fmt.Fprintf(&b, "2. Si la fecha mencionada ya pasó en %d, usa el año %d.\n", year, year+1)
	fmt.Fprintf(&b, "3. NUNCA uses años anteriores como %d o %d.\n", year-2, year-1)
	fmt.Fprintf(&b, "4. Para calcular qué día de la semana es una fecha, recuerda que HOY es %s %d de %s de %d.\n", wd, day, month, year)
	fmt.Fprintf(&b, "5. Cuando envíes la fecha al sistema (función %s), usa SIEMPRE el formato YYYY-MM-DD con el año correcto.\n\n", functionName)
	fmt.Fprintf(&b, "EJEMPLOS:\n")
	fmt.Fprintf(&b, "- Si el usuario dice \"el 15 de diciembre\" → usa \"%d-12-15\"\n", year)
	fmt.Fprintf(&b, "- Si el usuario dice \"mañana\" y hoy es %s → calcula la fecha correcta\n", iso)
	fmt.Fprintf(&b, "- Si el usuario dice \"el viernes\" → calcula cuál es el próximo viernes desde hoy\n")
	b.WriteString(strings.Repeat("=", 42) + "\n\n")
	return b.String()
}

// SpokenDate renders YYYY-MM-DD as "miércoles 3 de diciembre". Anything that
// does not parse is returned unchanged.
func SpokenDate(date string) string {
	t, err := time.Parse(isoDate, date)
	if err != nil {
		return date
	}
	return fmt.Sprintf("%s %d de %s", weekday(t), t.Day(), monthName(t))
}

const (
	InvalidDataReply = "Lo siento, los datos de la reserva no son válidos. Por favor, intente nuevamente."
	UnsupportedReply = "Lo siento, no puedo atender esa solicitud."
	CheckFailedReply = "Lo siento, no he podido comprobar la disponibilidad en este momento. Por favor, intente de nuevo en unos minutos."
)

func people(n int) string {
	if n == 1 {
		return "1 persona"
	}
	return fmt.Sprintf("%d personas", n)
}

// AvailabilityReply is what the assistant reads back to the caller.
func AvailabilityReply(q reservation.AvailabilityQuery, res reservation.AvailabilityResult) string {
	when := SpokenDate(q.Date)
	switch res.Outcome {
	case reservation.OutcomeAvailable:
		return fmt.Sprintf("Perfecto, tenemos disponibilidad para %s el %s a las %s. ¿Desea confirmar la reserva?", people(q.PartySize), when, q.Time)
	case reservation.OutcomeTimeTaken:
		alts := reservation.Alternatives(q.Time, res.AvailableTimes)
		return fmt.Sprintf("Lo siento, a las %s no tenemos disponibilidad el %s para %s. Tenemos hueco a las %s. ¿Le interesa alguno de esos horarios?", q.Time, when, people(q.PartySize), spokenList(alts))
	case reservation.OutcomeNoSlots:
		return fmt.Sprintf("Lo siento, no quedan horarios disponibles el %s para %s. ¿Desea probar otra fecha?", when, people(q.PartySize))
	case reservation.OutcomeDateUnavailable:
		return fmt.Sprintf("Lo siento, el %s no admite reservas. ¿Desea probar otra fecha?", when)
	}
	return CheckFailedReply
}

// spokenList joins items Spanish style: "a, b y c".
func spokenList(items []string) string {
	switch len(items) {
	case 0:
		return ""
	case 1:
		return items[0]
	}
	return strings.Join(items[:len(items)-1], ", ") + " y " + items[len(items)-1]
}
