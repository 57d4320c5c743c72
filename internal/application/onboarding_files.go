package application

import (
	"fmt"
	"path"
	"regexp"
	"strings"

	"github.com/gabriel-vasile/mimetype"

	"github.com/oksasatya/organizer-billing/internal/domain/entity"
)

// UploadFile is one file attached to a submission.
type UploadFile struct {
	Filename string
	Data     []byte
}

var acceptedContentTypes = []string{"application/pdf", "image/jpeg", "image/png"}

var unsafeFilenameChars = regexp.MustCompile(`[^a-z0-9._-]+`)

const maxFilenameLen = 100

type preparedUpload struct {
	docType     entity.DocumentType
	displayName string
	filename    string
	contentType string
	data        []byte
}

// prepareUploads checks every submitted file without touching the network and
// returns them in upload order.
func prepareUploads(files map[entity.DocumentType]UploadFile, maxBytes int64) ([]preparedUpload, error) {
	out := make([]preparedUpload, 0, len(files))
	problems := map[string]string{}

	for t := range files {
		if !t.IsValid() {
			problems[string(t)] = "unknown document type"
		}
	}

	for _, t := range entity.DocumentUploadOrder {
		f, ok := files[t]
		if !ok {
			continue
		}
		field := t.FormField()
		if len(f.Data) == 0 {
			problems[field] = "file is empty"
			continue
		}
		if maxBytes > 0 && int64(len(f.Data)) > maxBytes {
			problems[field] = fmt.Sprintf("file exceeds %d bytes", maxBytes)
			continue
		}
		mt := mimetype.Detect(f.Data)
		contentType := ""
		for _, accepted := range acceptedContentTypes {
			if mt.Is(accepted) {
				contentType = accepted
				break
			}
		}
		if contentType == "" {
			problems[field] = "file must be a PDF, JPEG or PNG, got " + mt.String()
			continue
		}
		out = append(out, preparedUpload{
			docType:     t,
			displayName: displayName(f.Filename),
			filename:    sanitizeFilename(f.Filename, mt.Extension()),
			contentType: contentType,
			data:        f.Data,
		})
	}

	if len(problems) > 0 {
		return nil, entity.ErrInvalidFile.WithDetails(problems)
	}
	return out, nil
}

func displayName(name string) string {
	name = path.Base(strings.ReplaceAll(strings.TrimSpace(name), "\\", "/"))
	if name == "." || name == "/" || name == "" {
		return "document"
	}
	return name
}

// sanitizeFilename keeps lowercase ASCII letters, digits, dots, dashes and
// underscores. ext is used when the original name has no extension.
func sanitizeFilename(name, ext string) string {
	name = strings.ToLower(displayName(name))
	name = unsafeFilenameChars.ReplaceAllString(name, "-")
	name = strings.Trim(name, ".-_")

	stem, suffix := splitExt(name)
	if len(suffix) > 10 {
		stem, suffix = stem+suffix, ""
	}
	if stem == "" {
		stem = "document"
	}
	if suffix == "" {
		suffix = ext
	}
	if len(stem)+len(suffix) > maxFilenameLen {
		stem = stem[:maxFilenameLen-len(suffix)]
	}
	return stem + suffix
}

func splitExt(name string) (string, string) {
	ext := path.Ext(name)
	if ext == "." {
		return strings.TrimSuffix(name, "."), ""
	}
	return strings.TrimSuffix(name, ext), ext
}

// storageKey builds {userID}/{documentType}/{filename}. A key already
// referenced by a stored document gets a numeric suffix so that a rollback
// can only ever delete blobs written by the current run.
func storageKey(userID string, t entity.DocumentType, filename string, taken map[string]bool) string {
	key := userID + "/" + string(t) + "/" + filename
	if !taken[key] {
		return key
	}
	stem, ext := splitExt(filename)
	for n := 2; ; n++ {
		candidate := fmt.Sprintf("%s/%s/%s-%d%s", userID, t, stem, n, ext)
		if !taken[candidate] {
			return candidate
		}
	}
}
