package geohint

import (
	"fmt"
	"net"
	"strings"

	"github.com/oschwald/geoip2-golang"
	"github.com/oschwald/maxminddb-golang"
)

// isoToBPS 将 ISO 3166-2:ID 省级代码映射到 BPS 省代码（地区 API 的 id）
var isoToBPS = map[string]string{
	"AC": "11", "SU": "12", "SB": "13", "RI": "14", "JA": "15", "SS": "16",
	"BE": "17", "LA": "18", "BB": "19", "KR": "21", "JK": "31", "JB": "32",
	"JT": "33", "YO": "34", "JI": "35", "BT": "36", "BA": "51", "NB": "52",
	"NT": "53", "KB": "61", "KT": "62", "KS": "63", "KI": "64", "KU": "65",
	"SA": "71", "ST": "72", "SN": "73", "SG": "74", "GO": "75", "SR": "76",
	"MA": "81", "MU": "82", "PB": "91", "PA": "94",
}

// GeoIP 基于 MaxMind City 库
type GeoIP struct {
	r *geoip2.Reader
}

// OpenGeoIP：verify=true 时先用 maxminddb 校验库文件完整性与类型
func OpenGeoIP(path string, verify bool) (*GeoIP, error) {
	if verify {
		raw, err := maxminddb.Open(path)
		if err != nil {
			return nil, err
		}
		err = raw.Verify()
		dbType := raw.Metadata.DatabaseType
		_ = raw.Close()
		if err != nil {
			return nil, fmt.Errorf("verify %s: %w", path, err)
		}
		if !strings.Contains(dbType, "City") {
			return nil, fmt.Errorf("%s is %q, want a City database", path, dbType)
		}
	}
	r, err := geoip2.Open(path)
	if err != nil {
		return nil, err
	}
	return &GeoIP{r: r}, nil
}

func (g *GeoIP) Name() string { return "geoip" }

func (g *GeoIP) Lookup(ip string) (Hint, bool) {
	parsed := net.ParseIP(strings.TrimSpace(ip))
	if parsed == nil {
		return Hint{}, false
	}
	rec, err := g.r.City(parsed)
	if err != nil || rec.Country.IsoCode != "ID" || len(rec.Subdivisions) == 0 {
		return Hint{}, false
	}
	sub := rec.Subdivisions[0]
	return hintFromSubdivision(sub.IsoCode, sub.Names["en"])
}

func (g *GeoIP) Close() error { return g.r.Close() }

func hintFromSubdivision(iso, name string) (Hint, bool) {
	h := Hint{RegionID: isoToBPS[strings.ToUpper(strings.TrimPrefix(iso, "ID-"))], Name: name}
	return h, h.RegionID != "" || h.Name != ""
}
