package terminology

import (
	"fmt"
	"io/ioutil"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Kind tags the code system a lookup targets.
type Kind string

const (
	KindDiagnosis  Kind = "DX"   // CIE-10
	KindProcedure  Kind = "PROC" // CUPS
	KindMedication Kind = "MED"  // ATC
	KindRegime     Kind = "REG"  // payer regime
)

// Sentinel descriptions returned on lookup miss. The catalog is total: an
// unknown code degrades to its kind sentinel instead of failing, so the
// sequence builder tolerates ontology drift.
const (
	UnknownDiagnosis  = "ENFERMEDAD_NO_ESPECIFICADA"
	UnknownProcedure  = "PROCEDIMIENTO_NO_ESPECIFICADO"
	UnknownMedication = "MEDICAMENTO_NO_ESPECIFICADO"
	UnknownRegime     = "REGIMEN_NO_ESPECIFICADO"
)

// Catalog maps raw clinical codes to rich semantic descriptions.
// Keys are uppercase, dot-stripped. Immutable after construction and safe
// for concurrent readers.
type Catalog struct {
	Version     string            `yaml:"version" json:"version"`
	Diagnoses   map[string]string `yaml:"diagnoses" json:"diagnoses"`
	Procedures  map[string]string `yaml:"procedures" json:"procedures"`
	Medications map[string]string `yaml:"medications" json:"medications"`
	Regimes     map[string]string `yaml:"regimes" json:"regimes"`
}

func Load(path string) (Catalog, error) {
	if path == "" {
		return DefaultCatalog(), nil
	}
	content, err := ioutil.ReadFile(filepath.Clean(path))
	if err != nil {
		return DefaultCatalog(), err
	}
	var cat Catalog
	if err := yaml.Unmarshal(content, &cat); err != nil {
		return Catalog{}, err
	}
	for name, m := range map[string]map[string]string{
		"diagnoses":   cat.Diagnoses,
		"procedures":  cat.Procedures,
		"medications": cat.Medications,
		"regimes":     cat.Regimes,
	} {
		if len(m) == 0 {
			return Catalog{}, fmt.Errorf("terminology catalog missing %s", name)
		}
	}
	if cat.Version == "" {
		cat.Version = filepath.Base(path)
	}
	return cat.canonicalized(), nil
}

// Lookup resolves (kind, code) to a description. Dots are stripped before
// lookup; regime codes are additionally upper-cased. An unrecognized kind
// returns the raw code unchanged.
func (c Catalog) Lookup(kind Kind, code string) string {
	clean := strings.ReplaceAll(code, ".", "")
	switch kind {
	case KindDiagnosis:
		if desc, ok := c.Diagnoses[clean]; ok {
			return desc
		}
		return UnknownDiagnosis
	case KindProcedure:
		if desc, ok := c.Procedures[clean]; ok {
			return desc
		}
		return UnknownProcedure
	case KindMedication:
		if desc, ok := c.Medications[clean]; ok {
			return desc
		}
		return UnknownMedication
	case KindRegime:
		if desc, ok := c.Regimes[strings.ToUpper(clean)]; ok {
			return desc
		}
		return UnknownRegime
	}
	return code
}

func (c Catalog) canonicalized() Catalog {
	canon := func(m map[string]string) map[string]string {
		out := make(map[string]string, len(m))
		for k, v := range m {
			out[strings.ToUpper(strings.ReplaceAll(k, ".", ""))] = v
		}
		return out
	}
	c.Diagnoses = canon(c.Diagnoses)
	c.Procedures = canon(c.Procedures)
	c.Medications = canon(c.Medications)
	c.Regimes = canon(c.Regimes)
	return c
}

// DefaultCatalog returns the built-in SISPRO master tables.
func DefaultCatalog() Catalog {
	return Catalog{
		Version: "sispro-default",
		Diagnoses: map[string]string{
			"E10":  "DIABETES MELLITUS INSULINODEPENDIENTE TIPO 1 ENDOCRINO",
			"E119": "DIABETES MELLITUS TIPO 2 NO INSULINODEPENDIENTE SIN COMPLICACIONES METABOLICO",
			"E105": "DIABETES MELLITUS TIPO 1 CON COMPLICACIONES CIRCULATORIAS PERIFERICAS",
			"N183": "ENFERMEDAD RENAL CRONICA ETAPA 3 FALLA RENAL MODERADA FILTRACION GLOMERULAR DISMINUIDA",
			"I10X": "HIPERTENSION ARTERIAL ESENCIAL PRIMARIA RIESGO CARDIOVASCULAR",
			"T814": "INFECCION CONSECUTIVA A PROCEDIMIENTO HERIDA QUIRURGICA COMPLICACION POSOPERATORIA",
			"Z000": "EXAMEN MEDICO GENERAL CONTROL PREVENTIVO SALUD",
		},
		Procedures: map[string]string{
			"903895": "CREATININA EN SUERO ORINA FUNCION RENAL QUIMICA SANGUINEA",
			"903841": "HEMOGLOBINA GLICOSILADA HB1AC CONTROL DIABETES",
			"890201": "CONSULTA DE PRIMERA VEZ POR MEDICINA GENERAL",
			"890301": "CONSULTA DE CONTROL POR MEDICINA GENERAL",
			"871010": "RADIOGRAFIA DE TORAX",
			"881112": "ECOGRAFIA RENAL VIAL URINARIAS",
		},
		Medications: map[string]string{
			"A10BA02": "METFORMINA ANTIDIABETICO ORAL BIGUANIDAS",
			"A10A":    "INSULINAS Y ANALOGOS HORMONA",
			"C09AA02": "ENALAPRIL ANTIHIPERTENSIVO INHIBIDOR ECA",
			"J01CR02": "AMOXICILINA Y INHIBIDOR DE ENZIMA ANTIBIOTICO PENICILINAS",
		},
		Regimes: map[string]string{
			"CONTRIBUTIVO": "PAGO POR CAPACIDAD ASEGURAMIENTO PRIVADO LABORAL",
			"SUBSIDIADO":   "PAGO POR ESTADO SISBEN VULNERABILIDAD",
			"ESPECIAL":     "FUERZAS MILITARES MAGISTERIO ECOPETROL",
		},
	}
}
