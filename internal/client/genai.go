// Gemini(genai) 기반 텍스트 생성 클라이언트
//
// 환경변수:
//   - AI_API_KEY: Gemini API 키
//   - AI_MODEL: 모델 이름 (기본 gemini-2.5-flash)

package client

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/kube-rca/oncall-agent/internal/config"
	"github.com/kube-rca/oncall-agent/internal/tool"
	"google.golang.org/genai"
)

// GenAIClient 구조체 정의
type GenAIClient struct {
	client  *genai.Client
	model   string
	timeout time.Duration
}

func NewGenAIClient(ctx context.Context, cfg config.GenAIConfig) (*GenAIClient, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("missing AI_API_KEY")
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, err
	}
	return &GenAIClient{client: client, model: cfg.Model, timeout: cfg.Timeout}, nil
}

// Generate - 도구 없이 텍스트 생성
func (c *GenAIClient) Generate(ctx context.Context, system, prompt string) (string, error) {
	resp, err := c.generate(ctx, prompt, &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(system, genai.RoleUser),
	})
	if err != nil {
		return "", err
	}
	return resp.Text(), nil
}

// GenerateWithTools - 도구 선언을 포함해 생성하고 텍스트와 함수 호출을 함께 반환
func (c *GenAIClient) GenerateWithTools(ctx context.Context, system, prompt string, tools []tool.Spec) (string, []tool.Call, error) {
	cfg := &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(system, genai.RoleUser),
	}
	if len(tools) > 0 {
		cfg.Tools = []*genai.Tool{{FunctionDeclarations: FunctionDeclarations(tools)}}
	}

	resp, err := c.generate(ctx, prompt, cfg)
	if err != nil {
		return "", nil, err
	}

	var calls []tool.Call
	for _, fc := range resp.FunctionCalls() {
		args, err := json.Marshal(fc.Args)
		if err != nil {
			return "", nil, fmt.Errorf("failed to marshal function args for %s: %w", fc.Name, err)
		}
		calls = append(calls, tool.Call{Name: fc.Name, Args: args})
	}
	return resp.Text(), calls, nil
}

func (c *GenAIClient) generate(ctx context.Context, prompt string, cfg *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	resp, err := c.client.Models.GenerateContent(ctx, c.model, genai.Text(prompt), cfg)
	if err != nil {
		return nil, fmt.Errorf("genai generate failed: %w", err)
	}
	if resp == nil || len(resp.Candidates) == 0 {
		return nil, fmt.Errorf("empty genai response")
	}
	return resp, nil
}

// FunctionDeclarations - tool.Spec을 genai 함수 선언으로 변환
func FunctionDeclarations(specs []tool.Spec) []*genai.FunctionDeclaration {
	decls := make([]*genai.FunctionDeclaration, 0, len(specs))
	for _, spec := range specs {
		schema := &genai.Schema{
			Type:       genai.TypeObject,
			Properties: make(map[string]*genai.Schema, len(spec.Params)),
		}
		names := make([]string, 0, len(spec.Params))
		for name := range spec.Params {
			names = append(names, name)
		}
		sort.Strings(names)

		for _, name := range names {
			p := spec.Params[name]
			schema.Properties[name] = &genai.Schema{
				Type:        schemaType(p.Type),
				Description: p.Description,
				Enum:        p.Enum,
			}
			if p.Required {
				schema.Required = append(schema.Required, name)
			}
		}
		decls = append(decls, &genai.FunctionDeclaration{
			Name:        spec.Name,
			Description: spec.Description,
			Parameters:  schema,
		})
	}
	return decls
}

func schemaType(t string) genai.Type {
	switch t {
	case "integer":
		return genai.TypeInteger
	case "number":
		return genai.TypeNumber
	case "boolean":
		return genai.TypeBoolean
	case "object":
		return genai.TypeObject
	case "array":
		return genai.TypeArray
	default:
		return genai.TypeString
	}
}
