package doctor

type Doctor struct {
	ID              string `json:"id"`
	Name            string `json:"name"`
	Specialization  string `json:"specialization"`
	Department      string `json:"department"`
	ExperienceYears int    `json:"experienceYears"`
	Phone           string `json:"phone,omitempty"`
	Email           string `json:"email,omitempty"`
}
