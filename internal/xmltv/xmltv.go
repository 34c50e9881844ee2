// Package xmltv decodes XMLTV guide documents into a navigable tree.
//
// Only the elements the converter consumes are modelled: channels with their
// display names, and programmes with title, sub-title, desc, icon and
// episode-num children. XMLTV allows most children to repeat (one per
// language); accessors return the first occurrence, matching how downstream
// consumers read the guide.
package xmltv

import (
	"encoding/xml"
	"fmt"
	"io"
	"time"

	"golang.org/x/net/html/charset"
)

// TimeLayout is the XMLTV timestamp format: yyyyMMddHHmmss followed by an
// explicit UTC offset, e.g. "20260828203000 +0100".
const TimeLayout = "20060102150405 -0700"

// TV is the root <tv> document.
type TV struct {
	XMLName    xml.Name    `xml:"tv"`
	Source     string      `xml:"source-info-name,attr"`
	Generator  string      `xml:"generator-info-name,attr"`
	Channels   []Channel   `xml:"channel"`
	Programmes []Programme `xml:"programme"`
}

// Channel is one <channel> element.
type Channel struct {
	ID           string   `xml:"id,attr"`
	DisplayNames []string `xml:"display-name"`
}

// DisplayName returns the first display-name, or "".
func (c Channel) DisplayName() string {
	if len(c.DisplayNames) == 0 {
		return ""
	}
	return c.DisplayNames[0]
}

// Programme is one <programme> element.
type Programme struct {
	Start       string   `xml:"start,attr"`
	Stop        string   `xml:"stop,attr"`
	Channel     string   `xml:"channel,attr"`
	Titles      []string `xml:"title"`
	SubTitles   []string `xml:"sub-title"`
	Descs       []string `xml:"desc"`
	Icons       []Icon   `xml:"icon"`
	EpisodeNums []string `xml:"episode-num"`
}

// Icon is a <icon> child with its source URL.
type Icon struct {
	Src string `xml:"src,attr"`
}

// Title returns the first title, or "".
func (p Programme) Title() string {
	if len(p.Titles) == 0 {
		return ""
	}
	return p.Titles[0]
}

// SubTitle returns the first sub-title and whether one was present.
func (p Programme) SubTitle() (string, bool) {
	if len(p.SubTitles) == 0 {
		return "", false
	}
	return p.SubTitles[0], true
}

// Desc returns the first desc and whether one was present.
func (p Programme) Desc() (string, bool) {
	if len(p.Descs) == 0 {
		return "", false
	}
	return p.Descs[0], true
}

// IconSrc returns the first icon's src and whether an icon was present.
func (p Programme) IconSrc() (string, bool) {
	if len(p.Icons) == 0 {
		return "", false
	}
	return p.Icons[0].Src, true
}

// EpisodeNum returns the first episode-num and whether one was present.
func (p Programme) EpisodeNum() (string, bool) {
	if len(p.EpisodeNums) == 0 {
		return "", false
	}
	return p.EpisodeNums[0], true
}

// ParseTime parses an XMLTV timestamp, keeping its source UTC offset.
func ParseTime(s string) (time.Time, error) {
	t, err := time.Parse(TimeLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("xmltv: bad timestamp %q: %w", s, err)
	}
	return t, nil
}

// Decode reads an XMLTV document. Feeds declare all sorts of encodings
// (ISO-8859-1 and windows-1252 are common in the wild); the charset reader
// transcodes them so the decoder only ever sees UTF-8.
func Decode(r io.Reader) (*TV, error) {
	dec := xml.NewDecoder(r)
	dec.CharsetReader = charset.NewReaderLabel
	var tv TV
	if err := dec.Decode(&tv); err != nil {
		return nil, fmt.Errorf("xmltv: decode: %w", err)
	}
	return &tv, nil
}
