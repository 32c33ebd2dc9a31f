package model

// Engineer - 온콜 엔지니어 정보
type Engineer struct {
	ID       string    `json:"id" yaml:"id"`
	Name     string    `json:"name" yaml:"name"`
	Phone    string    `json:"phone" yaml:"phone"`
	Email    string    `json:"email" yaml:"email"`
	Services []Service `json:"services" yaml:"services"`
	IsBackup bool      `json:"is_backup" yaml:"isBackup"`
	Timezone string    `json:"timezone" yaml:"timezone"`
}

// PrimaryService - 엔지니어가 담당하는 첫 번째 서비스 (에스컬레이션 대상 조회용)
func (e Engineer) PrimaryService() Service {
	if len(e.Services) == 0 {
		return ""
	}
	return e.Services[0]
}
