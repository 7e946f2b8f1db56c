package extractor

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseVideoID(t *testing.T) {
	tests := []struct {
		name    string
		url     string
		want    string
		wantErr bool
	}{
		{name: "watch url", url: "https://www.youtube.com/watch?v=dQw4w9WgXcQ", want: "dQw4w9WgXcQ"},
		{name: "watch url with playlist params", url: "https://www.youtube.com/watch?v=dQw4w9WgXcQ&list=PL123", want: "dQw4w9WgXcQ"},
		{name: "short url", url: "https://youtu.be/dQw4w9WgXcQ", want: "dQw4w9WgXcQ"},
		{name: "no video id", url: "https://www.youtube.com/", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseVideoID(tt.url)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestValidatePDF(t *testing.T) {
	assert.True(t, ValidatePDF([]byte("%PDF-1.7\n...")))
	assert.False(t, ValidatePDF([]byte("PK\x03\x04")))
	assert.False(t, ValidatePDF([]byte("short")))
}

func TestValidateEPUB(t *testing.T) {
	assert.True(t, ValidateEPUB([]byte("PK\x03\x04")))
	assert.False(t, ValidateEPUB([]byte("%PDF-1.7")))
	assert.False(t, ValidateEPUB([]byte("P")))
}

func TestIsChapterFile(t *testing.T) {
	assert.True(t, isChapterFile("OEBPS/chapter1.xhtml"))
	assert.True(t, isChapterFile("OEBPS/Chapter2.HTML"))
	assert.False(t, isChapterFile("OEBPS/content.opf"))
	assert.False(t, isChapterFile("OEBPS/cover.jpg"))
	assert.False(t, isChapterFile("OEBPS/styles.css"))
}

func TestTitleFromPath(t *testing.T) {
	assert.Equal(t, "report", titleFromPath("/tmp/content-pipeline/job-1/report.pdf"))
	assert.Equal(t, "My Book", titleFromPath("/uploads/My Book.epub"))
}

func TestOPFTitle(t *testing.T) {
	opf := `<?xml version="1.0"?>
<package xmlns="http://www.idpf.org/2007/opf">
  <metadata xmlns:dc="http://purl.org/dc/elements/1.1/">
    <dc:title>My Great Book</dc:title>
    <dc:creator>Someone</dc:creator>
  </metadata>
</package>`
	assert.Equal(t, "My Great Book", opfTitle(strings.NewReader(opf)))
}

func TestOPFTitleMissing(t *testing.T) {
	opf := `<?xml version="1.0"?><package><metadata><dc:creator>Someone</dc:creator></metadata></package>`
	assert.Equal(t, "", opfTitle(strings.NewReader(opf)))
}

func TestParseVTT(t *testing.T) {
	vtt := `WEBVTT
Kind: captions
Language: en

1
00:00:00.000 --> 00:00:02.000
Hello there

2
00:00:02.000 --> 00:00:04.000
<c>General</c> Kenobi

3
00:00:04.000 --> 00:00:06.000
Hello there
`
	got := parseVTT(vtt)
	assert.Equal(t, "Hello there General Kenobi", got)
}
