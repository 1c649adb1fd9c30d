package patients

import (
	"encoding/json"
	"os"

	"go.uber.org/zap"

	"reception-voicebot/pkg"
)

// Directory holds the static patient record set. It is loaded once at process
// start and read-only afterwards; the JSON snapshot embedded in the system
// prompt is captured at the same moment and never refreshed.
type Directory struct {
	Patients []pkg.PatientRecord `json:"patients"`

	snapshot string
}

// Load reads the patient directory from path. Any read or parse failure falls
// back to the built-in sample set with a logged warning; startup never fails
// on a missing data file.
func Load(path string, log *zap.Logger) *Directory {
	data, err := os.ReadFile(path)
	if err != nil {
		log.Warn("patient data file not found, using sample data", zap.String("path", path), zap.Error(err))
		return newDirectory(sampleRecords())
	}
	var dir Directory
	if err := json.Unmarshal(data, &dir); err != nil || len(dir.Patients) == 0 {
		log.Warn("patient data file unreadable, using sample data", zap.String("path", path), zap.Error(err))
		return newDirectory(sampleRecords())
	}
	log.Info("patient directory loaded", zap.String("path", path), zap.Int("records", len(dir.Patients)))
	return newDirectory(dir.Patients)
}

func newDirectory(records []pkg.PatientRecord) *Directory {
	d := &Directory{Patients: records}
	snap, err := json.MarshalIndent(d, "", "  ")
	if err != nil {
		// A fixed struct of strings cannot fail to marshal; keep the prompt
		// usable regardless.
		snap = []byte(`{"patients": []}`)
	}
	d.snapshot = string(snap)
	return d
}

// Snapshot returns the indented JSON serialization of the directory captured
// at load time, for embedding in the system prompt.
func (d *Directory) Snapshot() string { return d.snapshot }

// Len reports the number of records in the directory.
func (d *Directory) Len() int { return len(d.Patients) }

func sampleRecords() []pkg.PatientRecord {
	return []pkg.PatientRecord{
		{
			Name:            "John Smith",
			Phone:           "555-0123",
			DateOfBirth:     "1985-06-15",
			AppointmentDate: "2024-02-15",
			AppointmentTime: "10:30 AM",
		},
		{
			Name:            "Jane Doe",
			Phone:           "555-0456",
			DateOfBirth:     "1990-03-22",
			AppointmentDate: "2024-02-16",
			AppointmentTime: "2:00 PM",
		},
		{
			Name:            "Alice Johnson",
			Phone:           "555-0789",
			DateOfBirth:     "1988-11-10",
			AppointmentDate: "2024-02-17",
			AppointmentTime: "9:00 AM",
		},
		{
			Name:            "Bob Wilson",
			Phone:           "555-0321",
			DateOfBirth:     "1992-07-25",
			AppointmentDate: "2024-02-18",
			AppointmentTime: "3:30 PM",
		},
	}
}
