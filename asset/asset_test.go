package asset

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDataLimitsCountBytes(t *testing.T) {
	assert.NoError(t, Data{Name: strings.Repeat("n", MaxNameLength)}.Validate())
	assert.NoError(t, Data{Name: strings.Repeat("é", MaxNameLength/2)}.Validate())
	assert.Error(t, Data{Name: strings.Repeat("é", MaxNameLength/2+1)}.Validate())

	assert.NoError(t, Data{Name: "n", Symbol: "€€€"}.Validate())
	assert.Error(t, Data{Name: "n", Symbol: "€€€€"}.Validate())

	assert.NoError(t, Data{Name: "n", URI: strings.Repeat("u", MaxURILength)}.Validate())
	assert.Error(t, Data{Name: "n", URI: strings.Repeat("ü", MaxURILength/2+1)}.Validate())

	assert.Error(t, Data{}.Validate())
}
