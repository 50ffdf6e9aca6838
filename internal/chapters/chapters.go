package chapters

import (
	"encoding/xml"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"cutdiff/internal/services"
)

// Chapter is a named marker at a start time within an edition.
type Chapter struct {
	Start time.Duration
	Title string
}

type document struct {
	XMLName  xml.Name       `xml:"Chapters"`
	Editions []editionEntry `xml:"EditionEntry"`
}

type editionEntry struct {
	Atoms []chapterAtom `xml:"ChapterAtom"`
}

type chapterAtom struct {
	TimeStart string           `xml:"ChapterTimeStart"`
	Displays  []chapterDisplay `xml:"ChapterDisplay"`
}

type chapterDisplay struct {
	String string `xml:"ChapterString"`
}

// ParseFile reads chapters from a Matroska chapter XML file.
func ParseFile(path string) ([]Chapter, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, services.Wrap(services.ErrNotFound, "chapters", "open", path, err)
	}
	defer file.Close()
	return Parse(file)
}

// Parse reads chapters from the first EditionEntry of a Matroska chapter XML
// document, ordered by start time.
func Parse(r io.Reader) ([]Chapter, error) {
	var doc document
	if err := xml.NewDecoder(r).Decode(&doc); err != nil {
		if strings.Contains(err.Error(), "expected element type <Chapters>") {
			return nil, invalid("expected XML document with root element Chapters", nil)
		}
		return nil, invalid("decode chapter xml", err)
	}
	if len(doc.Editions) == 0 {
		return nil, invalid("expected EditionEntry under Chapters", nil)
	}

	atoms := doc.Editions[0].Atoms
	out := make([]Chapter, 0, len(atoms))
	for i, atom := range atoms {
		if len(atom.Displays) == 0 {
			return nil, invalid(fmt.Sprintf("chapter %d: expected ChapterDisplay for ChapterAtom", i+1), nil)
		}
		start, err := ParseTimestamp(atom.TimeStart)
		if err != nil {
			return nil, invalid(fmt.Sprintf("chapter %d", i+1), err)
		}
		out = append(out, Chapter{Start: start, Title: strings.TrimSpace(atom.Displays[0].String)})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Start < out[j].Start })
	return out, nil
}

// ParseTimestamp parses HH:MM:SS with an optional fraction of up to nine
// digits, as written in ChapterTimeStart.
func ParseTimestamp(value string) (time.Duration, error) {
	value = strings.TrimSpace(value)
	parts := strings.Split(value, ":")
	if len(parts) != 3 {
		return 0, fmt.Errorf("invalid chapter timestamp %q", value)
	}
	hours, err := strconv.Atoi(parts[0])
	if err != nil || hours < 0 {
		return 0, fmt.Errorf("invalid hours in %q", value)
	}
	minutes, err := strconv.Atoi(parts[1])
	if err != nil || minutes < 0 || minutes > 59 {
		return 0, fmt.Errorf("invalid minutes in %q", value)
	}
	secondsPart, fraction, _ := strings.Cut(parts[2], ".")
	seconds, err := strconv.Atoi(secondsPart)
	if err != nil || seconds < 0 || seconds > 59 {
		return 0, fmt.Errorf("invalid seconds in %q", value)
	}
	var nanos int
	if fraction != "" {
		if len(fraction) > 9 {
			fraction = fraction[:9]
		}
		nanos, err = strconv.Atoi(fraction + strings.Repeat("0", 9-len(fraction)))
		if err != nil {
			return 0, fmt.Errorf("invalid fraction in %q", value)
		}
	}
	return time.Duration(hours)*time.Hour +
		time.Duration(minutes)*time.Minute +
		time.Duration(seconds)*time.Second +
		time.Duration(nanos), nil
}

// At returns the last chapter starting at or before ts. The list must be
// ordered by start time.
func At(list []Chapter, ts time.Duration) (Chapter, int, bool) {
	i := sort.Search(len(list), func(i int) bool { return list[i].Start > ts })
	if i == 0 {
		return Chapter{}, 0, false
	}
	return list[i-1], i, true
}

func invalid(message string, err error) error {
	return services.Wrap(services.ErrValidation, "chapters", "parse", message, err)
}
