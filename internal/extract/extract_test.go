package extract

import (
	"archive/zip"
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func buildDocx(t *testing.T, body string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	w, err := zw.Create("[Content_Types].xml")
	require.NoError(t, err)
	_, err = w.Write([]byte(`<?xml version="1.0"?><Types/>`))
	require.NoError(t, err)
	w, err = zw.Create(docxBody)
	require.NoError(t, err)
	_, err = w.Write([]byte(body))
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

const sampleDocument = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main">
  <w:body>
    <w:p><w:r><w:t>Jane Doe</w:t></w:r></w:p>
    <w:p><w:r><w:t xml:space="preserve">Senior </w:t></w:r><w:r><w:t>Go Engineer</w:t></w:r></w:p>
    <w:p></w:p>
    <w:p><w:r><w:t>Skills:</w:t><w:tab/><w:t>Go, MySQL</w:t></w:r></w:p>
  </w:body>
</w:document>`

func TestText_DOCX(t *testing.T) {
	text, err := Text(FormatDOCX, buildDocx(t, sampleDocument))
	require.NoError(t, err)
	assert.Equal(t, "Jane Doe\nSenior Go Engineer\nSkills:\tGo, MySQL", text)
}

func TestText_DOCXWithoutBody(t *testing.T) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	_, err := zw.Create("other.xml")
	require.NoError(t, err)
	require.NoError(t, zw.Close())

	_, err = Text(FormatDOCX, buf.Bytes())
	assert.ErrorIs(t, err, ErrNoText)
}

func TestText_DOCXEmpty(t *testing.T) {
	_, err := Text(FormatDOCX, buildDocx(t, `<w:document xmlns:w="x"><w:body><w:p/></w:body></w:document>`))
	assert.ErrorIs(t, err, ErrNoText)
}

func withLimits(t *testing.T, part int64, text int) {
	t.Helper()
	prevPart, prevText := maxDocumentPartBytes, maxTextBytes
	maxDocumentPartBytes, maxTextBytes = part, text
	t.Cleanup(func() {
		maxDocumentPartBytes, maxTextBytes = prevPart, prevText
	})
}

func TestText_DOCXExpandedPartRejected(t *testing.T) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	w, err := zw.Create(docxBody)
	require.NoError(t, err)
	_, err = w.Write([]byte(`<w:document xmlns:w="x"><w:body><w:p><w:r><w:t>`))
	require.NoError(t, err)
	chunk := bytes.Repeat([]byte("A"), 1<<20)
	for written := int64(0); written <= maxDocumentPartBytes; written += int64(len(chunk)) {
		_, err = w.Write(chunk)
		require.NoError(t, err)
	}
	_, err = w.Write([]byte(`</w:t></w:r></w:p></w:body></w:document>`))
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	require.Less(t, buf.Len(), 1<<20, "deflated document should stay small")

	text, err := Text(FormatDOCX, buf.Bytes())
	assert.ErrorIs(t, err, ErrNoText)
	assert.Empty(t, text)
}

func TestText_DOCXTextLimit(t *testing.T) {
	withLimits(t, 1<<20, 100)

	long := `<w:document xmlns:w="x"><w:body><w:p><w:r><w:t>` + strings.Repeat("A", 200) + `</w:t></w:r></w:p></w:body></w:document>`
	_, err := Text(FormatDOCX, buildDocx(t, long))
	assert.ErrorIs(t, err, ErrNoText)

	_, err = Text(FormatDOCX, buildDocx(t, sampleDocument))
	assert.NoError(t, err)
}

func TestText_DOCXPartLimit(t *testing.T) {
	withLimits(t, 256, 1<<20)

	_, err := Text(FormatDOCX, buildDocx(t, sampleDocument))
	assert.ErrorIs(t, err, ErrNoText)
}

func TestText_CorruptInputs(t *testing.T) {
	_, err := Text(FormatDOCX, []byte("not a zip"))
	assert.ErrorIs(t, err, ErrNoText)

	_, err = Text(FormatPDF, []byte("%PDF-1.4 truncated"))
	assert.ErrorIs(t, err, ErrNoText)
}

func TestText_LegacyDoc(t *testing.T) {
	_, err := Text(FormatDOC, []byte{0xD0, 0xCF, 0x11, 0xE0})
	assert.ErrorIs(t, err, ErrLegacyDoc)
}

func TestFormatFromFilename(t *testing.T) {
	cases := map[string]Format{
		"cv.PDF":         FormatPDF,
		"my.resume.docx": FormatDOCX,
		"old.doc":        FormatDOC,
	}
	for name, want := range cases {
		got, err := FormatFromFilename(name)
		require.NoError(t, err, name)
		assert.Equal(t, want, got)
	}

	_, err := FormatFromFilename("notes.txt")
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
	_, err = FormatFromFilename("noext")
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
}
