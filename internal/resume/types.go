// Package resume turns uploaded résumé files into structured Info.
package resume

// Info is the structured résumé the extraction prompt asks for. Fields the
// model cannot fill are left as empty strings or empty slices.
type Info struct {
	PersonalInfo   PersonalInfo `json:"personalInfo"`
	Education      Education    `json:"education"`
	Experience     []Experience `json:"experience"`
	Skills         []string     `json:"skills"`
	Certifications []string     `json:"certifications,omitempty"`
	Languages      []Language   `json:"languages,omitempty"`
}

type PersonalInfo struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Phone    string `json:"phone"`
	Location string `json:"location"`
}

type Education struct {
	Degree         string `json:"degree"`
	University     string `json:"university"`
	GraduationYear string `json:"graduationYear"`
	Major          string `json:"major"`
	GPA            string `json:"gpa,omitempty"`
	EnglishLevel   string `json:"englishLevel,omitempty"`
}

type Experience struct {
	Company     string `json:"company"`
	Position    string `json:"position"`
	Duration    string `json:"duration"`
	Description string `json:"description"`
}

type Language struct {
	Language      string `json:"language"`
	Level         string `json:"level"`
	Certification string `json:"certification"`
}
