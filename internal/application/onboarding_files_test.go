package application

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"github.com/oksasatya/organizer-billing/internal/domain/entity"
)

func TestSanitizeFilename(t *testing.T) {
	tests := []struct {
		in, ext, want string
	}{
		{"Cédula Ana.PDF", ".pdf", "c-dula-ana.pdf"},
		{`C:\Users\ana\Desktop\rut 2024.pdf`, ".pdf", "rut-2024.pdf"},
		{"../../etc/passwd", ".pdf", "passwd.pdf"},
		{"", ".png", "document.png"},
		{"...", ".pdf", "document.pdf"},
		{"scan", ".jpg", "scan.jpg"},
		{"report.averyveryverylongextension", ".pdf", "report.averyveryverylongextension.pdf"},
	}
	for _, tc := range tests {
		require.Equal(t, tc.want, sanitizeFilename(tc.in, tc.ext), tc.in)
	}

	long := sanitizeFilename(strings.Repeat("a", 300)+".pdf", ".pdf")
	require.Len(t, long, maxFilenameLen)
	require.True(t, strings.HasSuffix(long, ".pdf"))
}

func TestStorageKey(t *testing.T) {
	taken := map[string]bool{}
	require.Equal(t, "u1/rut/rut.pdf", storageKey("u1", entity.DocumentRUT, "rut.pdf", taken))

	taken["u1/rut/rut.pdf"] = true
	taken["u1/rut/rut-2.pdf"] = true
	require.Equal(t, "u1/rut/rut-3.pdf", storageKey("u1", entity.DocumentRUT, "rut.pdf", taken))
}

func TestPrepareUploads_Order(t *testing.T) {
	pdf := []byte("%PDF-1.7\n%%EOF\n")
	jpeg := []byte("\xff\xd8\xff\xe0\x00\x10JFIF\x00\x01\x01\x00\x00\x01\x00\x01\x00\x00")
	out, err := prepareUploads(map[entity.DocumentType]UploadFile{
		entity.DocumentBankCertificate: {Filename: "cert.jpeg", Data: jpeg},
		entity.DocumentID:              {Filename: "id", Data: pdf},
	}, 0)
	require.NoError(t, err)
	require.Len(t, out, 2)
	require.Equal(t, entity.DocumentID, out[0].docType)
	require.Equal(t, "id.pdf", out[0].filename)
	require.Equal(t, "application/pdf", out[0].contentType)
	require.Equal(t, entity.DocumentBankCertificate, out[1].docType)
	require.Equal(t, "image/jpeg", out[1].contentType)

	_, err = prepareUploads(map[entity.DocumentType]UploadFile{"selfie": {Filename: "me.png", Data: pdf}}, 0)
	require.ErrorIs(t, err, entity.ErrInvalidFile)
}

func TestSaga_CompensatesInReverseAndContinuesOnFailure(t *testing.T) {
	log := logrus.New()
	log.SetOutput(io.Discard)
	sg := newSaga(logrus.NewEntry(log))

	var ran []string
	for _, name := range []string{"a", "b", "c"} {
		name := name
		sg.record(name, func(context.Context) error {
			ran = append(ran, name)
			if name == "b" {
				return errors.New("boom")
			}
			return nil
		})
	}
	require.Equal(t, 3, sg.len())
	require.Equal(t, 1, sg.compensate(context.Background()))
	require.Equal(t, []string{"c", "b", "a"}, ran)

	require.Zero(t, sg.compensate(context.Background()))
	require.Len(t, ran, 3)
}
