package entity

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSource_Validate(t *testing.T) {
	tests := []struct {
		name    string
		source  Source
		wantErr bool
	}{
		{name: "html source", source: Source{Name: "todojujuy", BaseURL: "https://www.todojujuy.com", Kind: "html"}},
		{name: "rss source", source: Source{Name: "feed", BaseURL: "https://example.com/rss", Kind: "rss"}},
		{name: "missing name", source: Source{BaseURL: "https://example.com"}, wantErr: true},
		{name: "unknown kind", source: Source{Name: "x", Kind: "nextjs"}, wantErr: true},
		{name: "private base url", source: Source{Name: "x", BaseURL: "http://127.0.0.1:8080"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.source.Validate()
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestSource_Validate_KindDefault(t *testing.T) {
	s := Source{Name: "pregon"}
	require.NoError(t, s.Validate())
	assert.Equal(t, SourceKindHTML, s.Kind)
}

func TestValidateURL(t *testing.T) {
	assert.NoError(t, ValidateURL("https://www.eltribuno.com/seccion/policiales"))
	assert.Error(t, ValidateURL(""))
	assert.Error(t, ValidateURL("ftp://example.com"))
	assert.Error(t, ValidateURL("https://"))
	assert.Error(t, ValidateURL("http://localhost/admin"))
	assert.Error(t, ValidateURL("http://192.168.1.10/"))
	assert.Error(t, ValidateURL("http://169.254.169.254/latest/meta-data"))
}
