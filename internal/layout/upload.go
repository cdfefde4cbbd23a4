package layout

import (
	"bytes"
	"fmt"
	"strings"
)

// MaxUploadSize is the default upload limit for source documents.
const MaxUploadSize = 10 * 1024 * 1024 // 10MB

var pdfHeader = []byte("%PDF-")

// ValidateUpload performs cheap structural checks on an uploaded document
// before it reaches the extractor: size cap, PDF magic header and file
// extension. It does not attempt a full parse.
func ValidateUpload(data []byte, filename string, maxSize int64) error {
	if len(data) == 0 {
		return fmt.Errorf("no file provided")
	}

	if maxSize <= 0 {
		maxSize = MaxUploadSize
	}
	if int64(len(data)) > maxSize {
		return fmt.Errorf("file size exceeds %dMB limit: %.2fMB",
			maxSize/(1024*1024), float64(len(data))/1024/1024)
	}

	if !bytes.HasPrefix(data, pdfHeader) {
		return fmt.Errorf("invalid PDF file: missing %%PDF- header")
	}

	if filename != "" && !strings.HasSuffix(strings.ToLower(filename), ".pdf") {
		return fmt.Errorf("invalid file extension, only .pdf files are supported: %s", filename)
	}

	return nil
}
