package parse

import (
	"fmt"
	"strings"
)

// Professional titles accepted by the staff panel.
const (
	TitleDoctor       = "Dr."
	TitleDoctorFemale = "Dra."
)

// ProfessionalLabel joins a title and a professional's name the way calls are
// announced, e.g. "Dra. Ana Souza". Unknown titles fall back to "Dr.".
func ProfessionalLabel(title, name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", fmt.Errorf("professional name is empty")
	}

	title = strings.TrimSpace(title)
	if title != TitleDoctor && title != TitleDoctorFemale {
		title = TitleDoctor
	}
	return title + " " + name, nil
}
