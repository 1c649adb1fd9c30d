package patients

import (
	"strings"

	"reception-voicebot/pkg"
)

// Verify checks a candidate (name, phone, dob) triple against the directory
// and returns the first record matching all three fields, in directory order.
//
// Normalization is fixed by the legacy verification rule and must not drift:
//   - name: lower-cased and trimmed on the input side, lower-cased on the
//     stored side, compared for exact equality;
//   - phone: the input is stripped of "-", " ", "(" and ")", the stored phone
//     of "-" only (the asymmetry is deliberate compatibility behavior);
//   - date of birth: raw string equality, no normalization.
//
// There is no partial-match feedback: this is a boolean gate plus record.
func (d *Directory) Verify(name, phone, dob string) (bool, *pkg.PatientRecord) {
	nameLower := strings.ToLower(strings.TrimSpace(name))
	phoneClean := cleanInputPhone(phone)

	for i := range d.Patients {
		p := &d.Patients[i]
		if strings.ToLower(p.Name) == nameLower &&
			strings.ReplaceAll(p.Phone, "-", "") == phoneClean &&
			p.DateOfBirth == dob {
			return true, p
		}
	}
	return false, nil
}

func cleanInputPhone(phone string) string {
	r := strings.NewReplacer("-", "", " ", "", "(", "", ")", "")
	return r.Replace(phone)
}
