package attrval

import (
	"strconv"
	"strings"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/ianaindex"
	"golang.org/x/text/encoding/japanese"
	"golang.org/x/text/encoding/korean"
	"golang.org/x/text/encoding/simplifiedchinese"
	"golang.org/x/text/encoding/traditionalchinese"
	"golang.org/x/text/encoding/unicode"

	"github.com/roach88/candle/internal/diag"
)

// Windows code page numbers with a known encoding.
var codepages = map[int]encoding.Encoding{
	437:   charmap.CodePage437,
	850:   charmap.CodePage850,
	852:   charmap.CodePage852,
	855:   charmap.CodePage855,
	858:   charmap.CodePage858,
	860:   charmap.CodePage860,
	862:   charmap.CodePage862,
	863:   charmap.CodePage863,
	865:   charmap.CodePage865,
	866:   charmap.CodePage866,
	874:   charmap.Windows874,
	932:   japanese.ShiftJIS,
	936:   simplifiedchinese.GBK,
	949:   korean.EUCKR,
	950:   traditionalchinese.Big5,
	1250:  charmap.Windows1250,
	1251:  charmap.Windows1251,
	1252:  charmap.Windows1252,
	1253:  charmap.Windows1253,
	1254:  charmap.Windows1254,
	1255:  charmap.Windows1255,
	1256:  charmap.Windows1256,
	1257:  charmap.Windows1257,
	1258:  charmap.Windows1258,
	10000: charmap.Macintosh,
	20866: charmap.KOI8R,
	21866: charmap.KOI8U,
	28591: charmap.ISO8859_1,
	28592: charmap.ISO8859_2,
	28593: charmap.ISO8859_3,
	28594: charmap.ISO8859_4,
	28595: charmap.ISO8859_5,
	28596: charmap.ISO8859_6,
	28597: charmap.ISO8859_7,
	28598: charmap.ISO8859_8,
	28599: charmap.ISO8859_9,
	28603: charmap.ISO8859_13,
	28605: charmap.ISO8859_15,
	51932: japanese.EUCJP,
	54936: simplifiedchinese.GB18030,
	65001: unicode.UTF8,
}

// codepageByName maps lower-case canonical IANA names to code page numbers.
var codepageByName = func() map[string]int {
	names := make(map[string]int, len(codepages))
	for cp, enc := range codepages {
		if name, err := ianaindex.IANA.Name(enc); err == nil {
			names[strings.ToLower(name)] = cp
		}
	}
	return names
}()

// IsKnownCodepage reports whether cp is neutral (0) or has a known encoding.
func IsKnownCodepage(cp int) bool {
	_, ok := codepages[cp]
	return cp == 0 || ok
}

// LookupCodepage resolves an IANA or Windows encoding name to its code page.
func LookupCodepage(name string) (int, bool) {
	enc, err := ianaindex.IANA.Encoding(name)
	if err != nil || enc == nil {
		return 0, false
	}
	canonical, err := ianaindex.IANA.Name(enc)
	if err != nil {
		return 0, false
	}
	cp, ok := codepageByName[strings.ToLower(canonical)]
	return cp, ok
}

// Codepage accepts a code page number or an encoding name. A numeric code page
// without a known encoding is returned with a warning.
func Codepage(in *Input) (int, *diag.Message) {
	check(in)
	if in.Value == "" {
		return 0, in.empty()
	}
	if n, err := strconv.Atoi(in.Value); err == nil {
		if n < 0 {
			return 0, msg(diag.IllegalCodepage(in.Loc, in.Element, in.Attribute, in.Value))
		}
		if !IsKnownCodepage(n) {
			return n, msg(diag.UnsupportedCodepage(in.Loc, in.Element, in.Attribute, n))
		}
		return n, nil
	}
	if cp, ok := LookupCodepage(in.Value); ok {
		return cp, nil
	}
	return 0, msg(diag.IllegalCodepage(in.Loc, in.Element, in.Attribute, in.Value))
}
