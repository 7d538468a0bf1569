package service

import (
	"context"
	"errors"
	"io"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/grad-oversight-api/internal/dto"
	appErrors "github.com/noah-isme/grad-oversight-api/pkg/errors"
	"github.com/noah-isme/grad-oversight-api/pkg/storage"
)

func newExportServiceForTest(t *testing.T, ttl time.Duration) *ExportService {
	t.Helper()
	store, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	signer := storage.NewSignedURLSigner("secret", ttl)
	source := newTestOversightService(sampleOversightRepo(), nil)
	return NewExportService(source, store, signer, nil, ExportConfig{APIPrefix: "/api/v1/"}, nil)
}

func tokenFromURL(t *testing.T, raw string) string {
	t.Helper()
	u, err := url.Parse(raw)
	require.NoError(t, err)
	assert.Equal(t, "/api/v1/oversight/exports/download", u.Path)
	return u.Query().Get("token")
}

func TestExportServiceGenerateCSV(t *testing.T) {
	svc := newExportServiceForTest(t, time.Hour)

	resp, err := svc.Generate(context.Background(), dto.ExportRequest{Format: "csv", ProgramID: "cs-phd"})
	require.NoError(t, err)
	assert.Equal(t, "csv", resp.Format)
	assert.Equal(t, 1, resp.Rows)

	dl, err := svc.Open(tokenFromURL(t, resp.URL))
	require.NoError(t, err)
	defer dl.File.Close() //nolint:errcheck
	assert.Equal(t, "text/csv", dl.ContentType)
	assert.True(t, strings.HasPrefix(dl.Filename, "cs-phd_20260315_100000_"))

	body, err := io.ReadAll(dl.File)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(body)), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "Student ID,Name,Program,Risk Score,Tier,Quadrant,Days Since Login,Stage,Urgent", lines[0])
	assert.Equal(t, "stu-1,Ana,cs-phd,100.0,critical,intervene,365,qualifying_pending,no", lines[1])
}

func TestExportServiceGeneratePDF(t *testing.T) {
	svc := newExportServiceForTest(t, time.Hour)

	resp, err := svc.Generate(context.Background(), dto.ExportRequest{Format: "pdf"})
	require.NoError(t, err)
	dl, err := svc.Open(tokenFromURL(t, resp.URL))
	require.NoError(t, err)
	defer dl.File.Close() //nolint:errcheck
	assert.Equal(t, "application/pdf", dl.ContentType)

	head := make([]byte, 4)
	_, err = io.ReadFull(dl.File, head)
	require.NoError(t, err)
	assert.Equal(t, "%PDF", string(head))
}

func TestExportServiceRejectsUnknownFormat(t *testing.T) {
	svc := newExportServiceForTest(t, time.Hour)
	_, err := svc.Generate(context.Background(), dto.ExportRequest{Format: "xlsx"})
	assert.True(t, errors.Is(err, appErrors.ErrValidation))

	_, err = svc.Generate(context.Background(), dto.ExportRequest{Format: "csv", AsOf: "yesterday"})
	assert.True(t, errors.Is(err, appErrors.ErrValidation))
}

func TestExportServiceOpenInvalidToken(t *testing.T) {
	svc := newExportServiceForTest(t, time.Hour)

	_, err := svc.Open("")
	assert.True(t, errors.Is(err, appErrors.ErrValidation))

	_, err = svc.Open("exp.1.abc.deadbeef")
	assert.True(t, errors.Is(err, appErrors.ErrForbidden))
}

func TestExportServiceOpenExpiredToken(t *testing.T) {
	store, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	rel, err := store.Save("at-risk/old.csv", []byte("x"))
	require.NoError(t, err)
	signer := storage.NewSignedURLSigner("secret", time.Nanosecond)
	token, _, err := signer.Generate("exp-1", rel)
	require.NoError(t, err)
	time.Sleep(1100 * time.Millisecond)

	svc := NewExportService(nil, store, signer, nil, ExportConfig{}, nil)
	_, err = svc.Open(token)
	assert.True(t, errors.Is(err, appErrors.ErrExpired))
}

func TestExportServiceOpenMissingFile(t *testing.T) {
	store, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	signer := storage.NewSignedURLSigner("secret", time.Hour)
	token, _, err := signer.Generate("exp-1", "at-risk/gone.csv")
	require.NoError(t, err)

	svc := NewExportService(nil, store, signer, nil, ExportConfig{}, nil)
	_, err = svc.Open(token)
	assert.True(t, errors.Is(err, appErrors.ErrNotFound))
}
