package trajectory

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/comet-col/platform/pkg/common/models"
	"github.com/comet-col/platform/pkg/terminology"
)

// DateLayout is the calendar-date form accepted on clinical events.
const DateLayout = "2006-01-02"

// Temporal-gap tokens. The gap between consecutive visits is bucketed so
// the embedding model sees care cadence (follow-up, chronic control,
// abandonment) instead of raw dates.
const (
	tokenHistoryStart = "[INICIO_HISTORIA]"
	tokenSameDay      = "[MISMO_DIA_URGENCIA]"
	tokenWeek         = "[SEMANA_1_SEGUIMIENTO]"
	tokenMonth        = "[MES_1_CONTROL]"
	tokenQuarter      = "[TRIMESTRE_1_CRONICO]"
)

// Builder converts one patient record into its semantic trajectory: a
// deterministic, space-joined token sequence encoding demographics, payer
// context, inter-visit gaps, care location and clinical content. Stateless;
// safe for concurrent use.
type Builder struct {
	catalog terminology.Catalog
}

func NewBuilder(catalog terminology.Catalog) *Builder {
	return &Builder{catalog: catalog}
}

// Build returns the canonical token sequence for record. Events are
// processed in ascending date order regardless of input order; date ties
// keep their relative input order.
func (b *Builder) Build(record models.PatientRecord) (string, error) {
	if record.Profile == nil {
		return "", &StructureError{Field: "profile"}
	}
	if record.Events == nil {
		return "", &StructureError{Field: "events"}
	}

	type datedEvent struct {
		event models.ClinicalEvent
		date  time.Time
	}
	dated := make([]datedEvent, len(record.Events))
	for i, evt := range record.Events {
		parsed, err := time.Parse(DateLayout, evt.Date)
		if err != nil {
			return "", &FormatError{EventIndex: i, Value: evt.Date, Err: err}
		}
		dated[i] = datedEvent{event: evt, date: parsed}
	}
	sort.SliceStable(dated, func(i, j int) bool {
		return dated[i].date.Before(dated[j].date)
	})

	regime := b.catalog.Lookup(terminology.KindRegime, record.Profile.PayerRegime)
	tokens := []string{
		fmt.Sprintf("PACIENTE_SEXO:%s", record.Profile.Sex),
		fmt.Sprintf("EDAD:%d_ANOS_GRUPO_RIESGO", record.Profile.Age),
		fmt.Sprintf("CONTEXTO_FINANCIERO:%s", strings.ReplaceAll(regime, " ", "_")),
	}

	var previous *time.Time
	for _, de := range dated {
		tokens = append(tokens,
			fmt.Sprintf("TIEMPO:%s", gapToken(previous, de.date)),
			fmt.Sprintf("LUGAR_ATENCION:IPS_%s", de.event.FacilityCode),
			fmt.Sprintf("ACTOR_MEDICO:%s", de.event.ProviderSpecialty),
		)
		tokens = b.appendCoded(tokens, "DX", terminology.KindDiagnosis, de.event.Diagnoses)
		tokens = b.appendCoded(tokens, "PROC", terminology.KindProcedure, de.event.Procedures)
		tokens = b.appendCoded(tokens, "FARMACO", terminology.KindMedication, de.event.Medications)

		date := de.date
		previous = &date
	}

	return strings.Join(tokens, " "), nil
}

func (b *Builder) appendCoded(tokens []string, prefix string, kind terminology.Kind, items []models.CodedItem) []string {
	for _, item := range items {
		desc := b.catalog.Lookup(kind, item.Code)
		tokens = append(tokens, fmt.Sprintf("%s:%s__%s", prefix, item.Code, strings.ReplaceAll(desc, " ", "_")))
	}
	return tokens
}

// gapToken buckets the whole-day gap between consecutive visits.
// First match wins.
func gapToken(previous *time.Time, current time.Time) string {
	if previous == nil {
		return tokenHistoryStart
	}
	days := int(current.Sub(*previous).Hours() / 24)
	switch {
	case days == 0:
		return tokenSameDay
	case days <= 7:
		return tokenWeek
	case days <= 30:
		return tokenMonth
	case days <= 90:
		return tokenQuarter
	default:
		return fmt.Sprintf("[GAP_LARGO_%d_DIAS_ABANDONO]", days)
	}
}
