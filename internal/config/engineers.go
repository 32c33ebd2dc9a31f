// 서비스별 온콜 엔지니어 디렉토리
//
// ENGINEERS_FILE이 비어 있으면 내장된 engineers.yaml을 사용
// 전화번호는 환경변수로 덮어쓸 수 있음:
//   - ENGINEER_<SERVICE>_PHONE (예: ENGINEER_PAYMENTS_PHONE)
//   - ENGINEER_<SERVICE>_BACKUP_PHONE

package config

import (
	_ "embed"
	"fmt"
	"os"
	"strings"

	"github.com/kube-rca/oncall-agent/internal/model"
	"gopkg.in/yaml.v3"
)

//go:embed engineers.yaml
var defaultEngineers []byte

// OnCall - 서비스 1개의 온콜 구성 (primary 필수, backup 선택)
type OnCall struct {
	Primary *model.Engineer `yaml:"primary"`
	Backup  *model.Engineer `yaml:"backup,omitempty"`
}

// Directory - 서비스 → 온콜 구성
type Directory struct {
	services map[model.Service]OnCall
}

type directoryFile struct {
	Services map[model.Service]OnCall `yaml:"services"`
}

// LoadDirectory - 파일(또는 내장 기본값)에서 디렉토리 로드
func LoadDirectory(path string) (*Directory, error) {
	data := defaultEngineers
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read engineers file: %w", err)
		}
		data = b
	}

	dir, err := ParseDirectory(data)
	if err != nil {
		return nil, err
	}
	dir.applyPhoneOverrides()
	return dir, nil
}

// ParseDirectory - YAML 파싱 후 검증
// 알려진 모든 서비스는 primary 1명을 가져야 함
func ParseDirectory(data []byte) (*Directory, error) {
	var file directoryFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse engineers file: %w", err)
	}

	for _, svc := range model.Services {
		entry, ok := file.Services[svc]
		if !ok || entry.Primary == nil {
			return nil, fmt.Errorf("engineer directory: service %q has no primary", svc)
		}
		if entry.Primary.Phone == "" {
			return nil, fmt.Errorf("engineer directory: primary for %q has no phone", svc)
		}
	}
	for svc := range file.Services {
		if !svc.Valid() {
			return nil, fmt.Errorf("engineer directory: unknown service %q", svc)
		}
	}
	return &Directory{services: file.Services}, nil
}

// NewDirectory - 테스트 등에서 직접 구성할 때 사용
func NewDirectory(entries map[model.Service]OnCall) *Directory {
	return &Directory{services: entries}
}

// Primary - 서비스의 primary 엔지니어
func (d *Directory) Primary(service model.Service) (model.Engineer, bool) {
	entry, ok := d.services[service]
	if !ok || entry.Primary == nil {
		return model.Engineer{}, false
	}
	return *entry.Primary, true
}

// Backup - 서비스의 backup 엔지니어 (없으면 false)
func (d *Directory) Backup(service model.Service) (model.Engineer, bool) {
	entry, ok := d.services[service]
	if !ok || entry.Backup == nil {
		return model.Engineer{}, false
	}
	return *entry.Backup, true
}

func (d *Directory) applyPhoneOverrides() {
	for svc, entry := range d.services {
		prefix := "ENGINEER_" + strings.ToUpper(string(svc))
		if phone := os.Getenv(prefix + "_PHONE"); phone != "" && entry.Primary != nil {
			primary := *entry.Primary
			primary.Phone = phone
			entry.Primary = &primary
		}
		if phone := os.Getenv(prefix + "_BACKUP_PHONE"); phone != "" && entry.Backup != nil {
			backup := *entry.Backup
			backup.Phone = phone
			entry.Backup = &backup
		}
		d.services[svc] = entry
	}
}
