package warehouse

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/comet-col/platform/pkg/common/models"
)

const (
	historyFile  = "patient_history.json"
	incomingFile = "incoming_case.json"
)

// FileRepository is the mock data warehouse: a local folder holding the
// historical patient records and the incoming case as JSON. The pipeline
// does not care whether records come from here or a real warehouse.
type FileRepository struct {
	dir string
}

func NewFileRepository(dir string) *FileRepository {
	return &FileRepository{dir: dir}
}

func (r *FileRepository) Paths() (string, string) {
	return filepath.Join(r.dir, historyFile), filepath.Join(r.dir, incomingFile)
}

// Seed creates the folder and writes the sample fixtures for any file that
// does not exist yet, so a fresh checkout is immediately runnable.
func (r *FileRepository) Seed() error {
	if err := os.MkdirAll(r.dir, 0o755); err != nil {
		return fmt.Errorf("creating warehouse folder: %w", err)
	}

	historyPath, incomingPath := r.Paths()
	if _, err := os.Stat(historyPath); os.IsNotExist(err) {
		if err := writeJSON(historyPath, defaultHistory()); err != nil {
			return err
		}
	}
	if _, err := os.Stat(incomingPath); os.IsNotExist(err) {
		if err := writeJSON(incomingPath, defaultIncoming()); err != nil {
			return err
		}
	}
	return nil
}

// Load reads the historical records and the incoming case. Missing files
// yield empty results rather than errors; malformed JSON is an error.
func (r *FileRepository) Load() ([]models.PatientRecord, models.PatientRecord, error) {
	historyPath, incomingPath := r.Paths()

	var history []models.PatientRecord
	if content, err := os.ReadFile(historyPath); err == nil {
		if err := json.Unmarshal(content, &history); err != nil {
			return nil, models.PatientRecord{}, fmt.Errorf("parsing %s: %w", historyPath, err)
		}
	} else if !os.IsNotExist(err) {
		return nil, models.PatientRecord{}, err
	}

	var incoming models.PatientRecord
	if content, err := os.ReadFile(incomingPath); err == nil {
		if err := json.Unmarshal(content, &incoming); err != nil {
			return nil, models.PatientRecord{}, fmt.Errorf("parsing %s: %w", incomingPath, err)
		}
	} else if !os.IsNotExist(err) {
		return nil, models.PatientRecord{}, err
	}

	return history, incoming, nil
}

func writeJSON(path string, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

func defaultHistory() []models.PatientRecord {
	return []models.PatientRecord{
		{
			ID: "PT_INTEGRAL_01",
			Profile: &models.Profile{
				Sex: "M", Age: 55, PayerRegime: "Contributivo", AffiliationType: "Cotizante",
			},
			Events: []models.ClinicalEvent{
				{
					Date:              "2024-01-10",
					FacilityCode:      "IPS_A",
					ProviderSpecialty: "MED_GENERAL",
					Diagnoses:         []models.CodedItem{{Code: "E119", Description: "Diabetes 2"}},
					Medications:       []models.CodedItem{{Code: "A10BA02", Description: "Metformina"}},
				},
				{
					Date:              "2024-04-12",
					FacilityCode:      "IPS_A",
					ProviderSpecialty: "MED_INTERNA",
					Diagnoses:         []models.CodedItem{{Code: "E119", Description: "Diabetes 2"}},
					Procedures:        []models.CodedItem{{Code: "903895", Description: "Creatinina"}},
				},
			},
		},
		{
			ID: "PT_RIESGO_RENAL_02",
			Profile: &models.Profile{
				Sex: "M", Age: 58, PayerRegime: "Contributivo", AffiliationType: "Cotizante",
			},
			Events: []models.ClinicalEvent{
				{
					Date:              "2024-01-15",
					FacilityCode:      "IPS_A",
					ProviderSpecialty: "URGENCIAS",
					Diagnoses:         []models.CodedItem{{Code: "E119", Description: "Diabetes 2"}},
					Medications:       []models.CodedItem{},
				},
				{
					Date:              "2024-06-20",
					FacilityCode:      "IPS_B",
					ProviderSpecialty: "NEFROLOGIA",
					Diagnoses:         []models.CodedItem{{Code: "N183", Description: "Enfermedad Renal"}},
					Procedures:        []models.CodedItem{{Code: "903895", Description: "Creatinina"}},
				},
			},
		},
	}
}

func defaultIncoming() models.PatientRecord {
	return models.PatientRecord{
		ID: "PT_NUEVO_ALTO_COSTO",
		Profile: &models.Profile{
			Sex: "M", Age: 60, PayerRegime: "Contributivo", AffiliationType: "Beneficiario",
		},
		Events: []models.ClinicalEvent{
			{
				Date:              "2025-01-05",
				FacilityCode:      "IPS_C",
				ProviderSpecialty: "URGENCIAS",
				Diagnoses:         []models.CodedItem{{Code: "E10", Description: "Diabetes"}},
				Medications:       []models.CodedItem{},
			},
			{
				Date:              "2025-05-10",
				FacilityCode:      "IPS_D",
				ProviderSpecialty: "URGENCIAS",
				Diagnoses:         []models.CodedItem{{Code: "E105", Description: "Diabetes complicada"}},
			},
		},
	}
}
