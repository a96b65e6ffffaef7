package chapter

import (
	"bytes"
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"strings"

	"github.com/ManuGH/ellier/internal/fsutil"
	"github.com/ManuGH/ellier/internal/timecode"
)

// FileName is the chapter sidecar inside a session directory.
const FileName = "chapters.xml"

// Language is the ChapterLanguage of every chapter.
const Language = "ko"

const doctype = `<!DOCTYPE Chapters SYSTEM "matroskachapters.dtd">`

type chaptersDoc struct {
	XMLName xml.Name     `xml:"Chapters"`
	Edition editionEntry `xml:"EditionEntry"`
}

type editionEntry struct {
	Atoms []chapterAtom `xml:"ChapterAtom"`
}

type chapterAtom struct {
	TimeStart string         `xml:"ChapterTimeStart"`
	Display   chapterDisplay `xml:"ChapterDisplay"`
}

type chapterDisplay struct {
	String   string `xml:"ChapterString"`
	Language string `xml:"ChapterLanguage"`
}

// DisplayString renders the chapter label shown by players.
func DisplayString(c Candidate) string {
	label := c.Snapshot.Category.Label()
	if label == "" {
		label = "unknown"
	}
	return fmt.Sprintf("%s Playing %s", c.Snapshot.Title, strings.ReplaceAll(label, "_", " "))
}

// Encode writes the Matroska chapter XML for chapters to w.
func Encode(w io.Writer, chapters []Candidate) error {
	doc := chaptersDoc{}
	for _, c := range chapters {
		doc.Edition.Atoms = append(doc.Edition.Atoms, chapterAtom{
			TimeStart: timecode.Chapter(c.Elapsed),
			Display:   chapterDisplay{String: DisplayString(c), Language: Language},
		})
	}

	if _, err := io.WriteString(w, xml.Header+doctype+"\n"); err != nil {
		return err
	}
	enc := xml.NewEncoder(w)
	enc.Indent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("encode chapters: %w", err)
	}
	if err := enc.Close(); err != nil {
		return err
	}
	_, err := io.WriteString(w, "\n")
	return err
}

// Marshal returns the chapter XML document.
func Marshal(chapters []Candidate) ([]byte, error) {
	var b bytes.Buffer
	if err := Encode(&b, chapters); err != nil {
		return nil, err
	}
	return b.Bytes(), nil
}

// WriteFile atomically replaces path with the chapter XML.
func WriteFile(ctx context.Context, path string, chapters []Candidate) error {
	return fsutil.WriteAtomic(ctx, path, func(w io.Writer) error {
		return Encode(w, chapters)
	})
}
