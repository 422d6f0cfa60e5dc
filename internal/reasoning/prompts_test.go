package reasoning

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/thirdop-reasoning-server/internal/domain"
)

func TestBuildNephrologyPrompt(t *testing.T) {
	input := domain.StructuredLabInput{
		"riskLevel": "HIGH",
		"eGFR":      42.0,
	}

	prompt := BuildNephrologyPrompt(input)

	assert.True(t, strings.HasPrefix(prompt, "You are a medically cautious lab report explanation assistant"))
	assert.Contains(t, prompt, "If riskLevel = HIGH: Return EXACTLY 3 concerns")
	assert.Contains(t, prompt, "Here is the structured lab input (includes riskLevel and lab values):\n\n{")
	assert.Contains(t, prompt, "\"eGFR\": 42")
	assert.Contains(t, prompt, "\"riskLevel\": \"HIGH\"")
	assert.True(t, strings.HasSuffix(prompt, "}"))
}

func TestBuildNephrologyPromptNilInput(t *testing.T) {
	prompt := BuildNephrologyPrompt(nil)

	assert.True(t, strings.HasSuffix(prompt, "lab values):\n\n{}"))
}

func TestBuildAnyReportPrompt(t *testing.T) {
	abnormalities := domain.AbnormalityList{
		map[string]interface{}{"parameter": "Hemoglobin", "value": 11.2, "status": "LOW"},
		map[string]interface{}{"parameter": "Sodium", "value": 129.0, "status": "LOW"},
	}

	prompt := BuildAnyReportPrompt(abnormalities)

	assert.True(t, strings.HasPrefix(prompt, "You are a medically cautious lab report explanation assistant working inside the ThirdOp platform"))
	assert.Contains(t, prompt, "This is NOT the nephrology engine.")
	assert.Contains(t, prompt, "\"Internal Medicine\"")
	assert.Contains(t, prompt, "Here are the abnormal lab values:\n\n[")
	assert.Contains(t, prompt, "\"parameter\": \"Hemoglobin\"")
	assert.Contains(t, prompt, "\"parameter\": \"Sodium\"")
	assert.True(t, strings.HasSuffix(prompt, "]"))
}

func TestBuildAnyReportPromptNilInput(t *testing.T) {
	prompt := BuildAnyReportPrompt(nil)

	assert.True(t, strings.HasSuffix(prompt, "abnormal lab values:\n\n[]"))
}
