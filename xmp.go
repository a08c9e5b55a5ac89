package uhdrgen

import (
	"bytes"
	"regexp"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

const xmpNamespace = "http://ns.adobe.com/xap/1.0/"

var xmpPrefix = append([]byte(xmpNamespace), 0)

// XMPOptions controls XMP serialization.
type XMPOptions struct {
	// Precision is the number of decimals of the log2 fields, -1 for the shortest exact form.
	Precision int
}

func formatXMPFloat(v float64, precision int) string {
	if v == 0 {
		v = 0 // no "-0"
	}
	return strconv.FormatFloat(v, 'f', precision, 64)
}

// BuildGainMapXMP renders the hdrgm descriptor embedded with the gain map image.
// The returned APP1 payload includes the XMP namespace and its NUL terminator.
func BuildGainMapXMP(p GainMapParameters, opts ...func(o *XMPOptions)) []byte {
	o := XMPOptions{Precision: -1}
	for _, applyOpt := range opts {
		applyOpt(&o)
	}

	baseIsHDR := "False"
	if p.BaseIsHDR {
		baseIsHDR = "True"
	}
	gamma := "1.0"
	if p.Gamma != 1 {
		gamma = formatXMPFloat(p.Gamma, -1)
	}

	var b bytes.Buffer
	b.Write(xmpPrefix)
	b.WriteString(`<x:xmpmeta xmlns:x="adobe:ns:meta/" x:xmptk="Adobe XMP Core 5.1.2">
    <rdf:RDF xmlns:rdf="http://www.w3.org/1999/02/22-rdf-syntax-ns#">
      <rdf:Description
      xmlns:hdrgm="http://ns.adobe.com/hdr-gain-map/1.0/"
      hdrgm:Version="` + gainMapVersion + `"
      hdrgm:GainMapMin="` + formatXMPFloat(p.MinLog2Gain, o.Precision) + `"
      hdrgm:GainMapMax="` + formatXMPFloat(p.MaxLog2Gain, o.Precision) + `"
      hdrgm:Gamma="` + gamma + `"
      hdrgm:OffsetSDR="` + formatXMPFloat(p.OffsetSDR, -1) + `"
      hdrgm:OffsetHDR="` + formatXMPFloat(p.OffsetHDR, -1) + `"
      hdrgm:HDRCapacityMin="` + formatXMPFloat(p.HDRCapacityMin, o.Precision) + `"
      hdrgm:HDRCapacityMax="` + formatXMPFloat(p.HDRCapacityMax, o.Precision) + `"
      hdrgm:BaseRenditionIsHDR="` + baseIsHDR + `"
      />
    </rdf:RDF>
  </x:xmpmeta> `)

	return b.Bytes()
}

// BuildContainerXMP renders the container directory embedded with the primary image.
// secondaryLength is the byte size of the whole gain map image as stored in the file.
func BuildContainerXMP(secondaryLength int) []byte {
	var b bytes.Buffer
	b.Write(xmpPrefix)
	b.WriteString(`<x:xmpmeta xmlns:x="adobe:ns:meta/" x:xmptk="Adobe XMP Core 5.1.2">
    <rdf:RDF xmlns:rdf="http://www.w3.org/1999/02/22-rdf-syntax-ns#">
      <rdf:Description
      xmlns:Container="http://ns.google.com/photos/1.0/container/"
      xmlns:Item="http://ns.google.com/photos/1.0/container/item/"
      xmlns:hdrgm="http://ns.adobe.com/hdr-gain-map/1.0/"
      hdrgm:Version="` + gainMapVersion + `">
        <Container:Directory>
          <rdf:Seq>
            <rdf:li rdf:parseType="Resource">
              <Container:Item
              Item:Semantic="` + string(RolePrimary) + `"
              Item:Mime="` + mimeJPEG + `"/>
            </rdf:li>
            <rdf:li rdf:parseType="Resource">
              <Container:Item
              Item:Semantic="` + string(RoleGainMap) + `"
              Item:Mime="` + mimeJPEG + `"
              Item:Length="` + strconv.Itoa(secondaryLength) + `"/>
            </rdf:li>
          </rdf:Seq>
        </Container:Directory>
      </rdf:Description>
    </rdf:RDF>
  </x:xmpmeta> `)

	return b.Bytes()
}

var (
	reVersion    = regexp.MustCompile(`hdrgm:Version="([^"]+)"`)
	reGainMapMin = regexp.MustCompile(`hdrgm:GainMapMin="([^"]+)"`)
	reGainMapMax = regexp.MustCompile(`hdrgm:GainMapMax="([^"]+)"`)
	reGamma      = regexp.MustCompile(`hdrgm:Gamma="([^"]+)"`)
	reOffsetSDR  = regexp.MustCompile(`hdrgm:OffsetSDR="([^"]+)"`)
	reOffsetHDR  = regexp.MustCompile(`hdrgm:OffsetHDR="([^"]+)"`)
	reHDRCapMin  = regexp.MustCompile(`hdrgm:HDRCapacityMin="([^"]+)"`)
	reHDRCapMax  = regexp.MustCompile(`hdrgm:HDRCapacityMax="([^"]+)"`)
	reBaseIsHDR  = regexp.MustCompile(`hdrgm:BaseRenditionIsHDR="([^"]+)"`)

	reItem     = regexp.MustCompile(`(?s)<Container:Item(.*?)/>`)
	reSemantic = regexp.MustCompile(`Item:Semantic="([^"]+)"`)
	reMime     = regexp.MustCompile(`Item:Mime="([^"]+)"`)
	reLength   = regexp.MustCompile(`Item:Length="(\d+)"`)
)

func xmpBody(app1 []byte) (string, error) {
	if !bytes.HasPrefix(app1, xmpPrefix) {
		return "", errors.New("xmp namespace mismatch")
	}
	return string(app1[len(xmpPrefix):]), nil
}

func submatch(re *regexp.Regexp, s string) (string, bool) {
	m := re.FindStringSubmatch(s)
	if len(m) != 2 {
		return "", false
	}
	return m[1], true
}

// parseGainMapXMP reads the hdrgm descriptor back into parameters.
func parseGainMapXMP(app1 []byte) (*GainMapParameters, error) {
	xml, err := xmpBody(app1)
	if err != nil {
		return nil, err
	}
	if _, ok := submatch(reVersion, xml); !ok {
		return nil, errors.New("xmp missing hdrgm:Version")
	}

	p := NewGainMapParameters(1)
	p.HDRCapacityMin, p.HDRCapacityMax = 0, 0

	fields := []struct {
		re       *regexp.Regexp
		dst      *float64
		required bool
	}{
		{reGainMapMax, &p.MaxLog2Gain, true},
		{reHDRCapMax, &p.HDRCapacityMax, true},
		{reGainMapMin, &p.MinLog2Gain, false},
		{reGamma, &p.Gamma, false},
		{reOffsetSDR, &p.OffsetSDR, false},
		{reOffsetHDR, &p.OffsetHDR, false},
		{reHDRCapMin, &p.HDRCapacityMin, false},
	}
	for _, f := range fields {
		str, ok := submatch(f.re, xml)
		if !ok {
			if f.required {
				return nil, errors.Errorf("xmp missing %s", strings.TrimSuffix(f.re.String(), `="([^"]+)"`))
			}
			continue
		}
		v, err := strconv.ParseFloat(str, 64)
		if err != nil {
			return nil, errors.Wrapf(err, "xmp value %q", str)
		}
		*f.dst = v
	}
	if v, ok := submatch(reBaseIsHDR, xml); ok {
		p.BaseIsHDR = strings.EqualFold(v, "True")
	}
	return &p, nil
}

// parseContainerItems reads the container directory in declaration order.
func parseContainerItems(app1 []byte) ([]ContainerItem, error) {
	xml, err := xmpBody(app1)
	if err != nil {
		return nil, err
	}
	var items []ContainerItem
	for _, m := range reItem.FindAllStringSubmatch(xml, -1) {
		attrs := m[1]
		semantic, ok := submatch(reSemantic, attrs)
		if !ok {
			return nil, errors.New("container item without Item:Semantic")
		}
		item := ContainerItem{Role: Role(semantic)}
		item.Mime, _ = submatch(reMime, attrs)
		if l, ok := submatch(reLength, attrs); ok {
			if item.Length, err = strconv.Atoi(l); err != nil {
				return nil, errors.Wrap(err, "container item length")
			}
		}
		items = append(items, item)
	}
	if len(items) == 0 {
		return nil, errors.New("xmp has no container directory")
	}
	return items, nil
}
