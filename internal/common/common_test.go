package common

import (
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

func TestHTTPStatusMapsTaxonomy(t *testing.T) {
	t.Parallel()

	cases := []struct {
		err  error
		want int
	}{
		{NotFound("item", "x"), http.StatusNotFound},
		{UpstreamError("deepseek", errors.New("503")), http.StatusBadGateway},
		{MalformedError("parse", errors.New("bad json")), http.StatusInternalServerError},
		{StoreError("insert items", errors.New("constraint")), http.StatusInternalServerError},
		{fmt.Errorf("wrap: %w", ErrNoWork), http.StatusConflict},
		{ErrPublishedItem, http.StatusConflict},
		{NewValidator().Field("estateId", "", Required).Error(), http.StatusBadRequest},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		require.Equal(t, tc.want, HTTPStatus(tc.err), tc.err.Error())
	}
}

func TestGRPCStatusMapsTaxonomy(t *testing.T) {
	t.Parallel()

	st, _ := status.FromError(GRPCStatus(NotFound("estate", "abc")))
	require.Equal(t, codes.NotFound, st.Code())
	require.Equal(t, "estate abc not found", st.Message())

	st, _ = status.FromError(GRPCStatus(UpstreamError("x", errors.New("y"))))
	require.Equal(t, codes.Unavailable, st.Code())

	st, _ = status.FromError(GRPCStatus(ErrNoWork))
	require.Equal(t, codes.FailedPrecondition, st.Code())

	require.NoError(t, GRPCStatus(nil))
}

func TestValidatorCollectsErrors(t *testing.T) {
	t.Parallel()

	var session *string
	bad := "nope"
	v := NewValidator().
		Field("estateId", "not-a-uuid", Required, UUID).
		Field("sessionId", session, UUID).
		Field("otherId", &bad, UUID).
		Field("condition", "mint", OneOf("good", "fair")).
		Field("name", "abcdef", MaxLength(3))

	require.True(t, v.HasErrors())
	require.Len(t, v.Errors(), 4)
	require.ErrorIs(t, v.Error(), ErrValidation)
}

func TestLoadConfigFileAppliesYAMLThenEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
database:
  driver: postgres
  dsn: postgres://file
capture:
  quiet_period: 5s
llm:
  model: file-model
`), 0o644))

	t.Setenv("LLM_MODEL", "env-model")
	t.Setenv("DEEPSEEK_API_KEY", "sk-test")

	cfg, err := LoadConfigFile(path)
	require.NoError(t, err)
	require.Equal(t, "postgres", cfg.Database.Driver)
	require.Equal(t, "postgres://file", cfg.Database.DSN)
	require.Equal(t, 5*time.Second, cfg.Capture.QuietPeriod)
	require.Equal(t, "env-model", cfg.LLM.Model)
	require.Equal(t, "sk-test", cfg.LLM.APIKey)
	require.InDelta(t, 0.1, cfg.LLM.ExtractionTemperature, 1e-6)
	require.NoError(t, cfg.Validate())
	require.NoError(t, cfg.ValidateLLM())
}

func TestConfigValidateRejectsUnknownDriver(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	cfg.Database.Driver = "mysql"
	require.ErrorIs(t, cfg.Validate(), ErrInvalidInput)

	cfg = DefaultConfig()
	require.ErrorIs(t, cfg.ValidateLLM(), ErrInvalidInput)
}
