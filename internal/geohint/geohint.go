// 包 geohint：根据访问者 IP 推测所在省份，作为省级下拉框的预选建议
// 背景：仅为提示，不写入表单；申请人仍需自行选择或手动输入
package geohint

import (
	"context"
	"os"
	"strings"
	"unicode"

	"bansos-api/internal/logger"
	"bansos-api/internal/metrics"
	"bansos-api/internal/wilayah"
)

// Hint 某一数据源给出的省份线索；RegionID 为 BPS 省代码，Name 为数据源中的省名，两者至少其一非空
type Hint struct {
	RegionID string
	Name     string
}

// Source 单一离线库
type Source interface {
	Name() string
	Lookup(ip string) (Hint, bool)
}

// Result 与省级选项匹配后的建议
type Result struct {
	Region wilayah.Region `json:"region"`
	Source string         `json:"source"`
	IP     string         `json:"ip"`
}

// Resolver 依次查询数据源，并将线索与当前省级选项对齐
type Resolver struct {
	sources []Source
	lookup  wilayah.Lookup
}

func NewResolver(lookup wilayah.Lookup, sources ...Source) *Resolver {
	var ss []Source
	for _, s := range sources {
		if s != nil {
			ss = append(ss, s)
		}
	}
	return &Resolver{sources: ss, lookup: lookup}
}

// NewResolverFromEnv：GEOIP_CITY_PATH 与 IP2REGION_V4_PATH 指向的文件存在时启用对应数据源
// 约束：打开失败仅记录告警，不阻断启动
func NewResolverFromEnv(lookup wilayah.Lookup) *Resolver {
	l := logger.L()
	var sources []Source
	if p := os.Getenv("GEOIP_CITY_PATH"); p != "" {
		g, err := OpenGeoIP(p, os.Getenv("GEOIP_VERIFY") == "true")
		if err != nil {
			l.Warn("geoip_open_error", "path", p, "err", err)
		} else {
			sources = append(sources, g)
		}
	}
	if p := os.Getenv("IP2REGION_V4_PATH"); p != "" {
		x, err := OpenIP2Region(p)
		if err != nil {
			l.Warn("ip2region_open_error", "path", p, "err", err)
		} else {
			sources = append(sources, x)
		}
	}
	l.Info("geohint_sources", "count", len(sources))
	return NewResolver(lookup, sources...)
}

// Enabled 报告是否至少有一个数据源
func (r *Resolver) Enabled() bool { return r != nil && len(r.sources) > 0 }

// Resolve：返回 ok=false 表示无法给出建议；仅省级选项查询失败时返回错误
func (r *Resolver) Resolve(ctx context.Context, ip string) (Result, bool, error) {
	if !r.Enabled() || ip == "" {
		metrics.ProvinceHintTotal.WithLabelValues("none").Inc()
		return Result{}, false, nil
	}
	var options []wilayah.Region
	for _, s := range r.sources {
		h, ok := s.Lookup(ip)
		if !ok {
			continue
		}
		if options == nil {
			var err error
			options, err = r.lookup.Children(ctx, wilayah.Province, "")
			if err != nil {
				return Result{}, false, err
			}
		}
		if reg, ok := match(options, h); ok {
			metrics.ProvinceHintTotal.WithLabelValues(s.Name()).Inc()
			logger.L().Debug("province_hint", "ip", ip, "source", s.Name(), "province", reg.ID)
			return Result{Region: reg, Source: s.Name(), IP: ip}, true, nil
		}
	}
	metrics.ProvinceHintTotal.WithLabelValues("none").Inc()
	return Result{}, false, nil
}

// Close 释放各数据源持有的文件句柄
func (r *Resolver) Close() {
	if r == nil {
		return
	}
	for _, s := range r.sources {
		if c, ok := s.(interface{ Close() error }); ok {
			_ = c.Close()
		}
	}
}

func match(options []wilayah.Region, h Hint) (wilayah.Region, bool) {
	if h.RegionID != "" {
		for _, o := range options {
			if o.ID == h.RegionID {
				return o, true
			}
		}
	}
	if h.Name == "" {
		return wilayah.Region{}, false
	}
	want := normalize(h.Name)
	for _, o := range options {
		if normalize(o.Name) == want {
			return o, true
		}
	}
	if alias, ok := englishNames[want]; ok {
		for _, o := range options {
			if normalize(o.Name) == alias {
				return o, true
			}
		}
	}
	return wilayah.Region{}, false
}

// normalize 去掉 "Provinsi"/"Province" 前后缀与非字母字符并转为大写
func normalize(s string) string {
	s = strings.ToUpper(s)
	s = strings.TrimPrefix(s, "PROVINSI ")
	s = strings.TrimSuffix(s, " PROVINCE")
	var b strings.Builder
	for _, r := range s {
		if unicode.IsLetter(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// englishNames 常见英文省名到印尼语省名（均已 normalize）
var englishNames = map[string]string{
	"WESTJAVA":          "JAWABARAT",
	"CENTRALJAVA":       "JAWATENGAH",
	"EASTJAVA":          "JAWATIMUR",
	"JAKARTA":           "DKIJAKARTA",
	"YOGYAKARTA":        "DIYOGYAKARTA",
	"NORTHSUMATRA":      "SUMATERAUTARA",
	"WESTSUMATRA":       "SUMATERABARAT",
	"SOUTHSUMATRA":      "SUMATERASELATAN",
	"BANGKABELITUNG":    "KEPULAUANBANGKABELITUNG",
	"RIAUISLANDS":       "KEPULAUANRIAU",
	"WESTNUSATENGGARA":  "NUSATENGGARABARAT",
	"EASTNUSATENGGARA":  "NUSATENGGARATIMUR",
	"WESTKALIMANTAN":    "KALIMANTANBARAT",
	"CENTRALKALIMANTAN": "KALIMANTANTENGAH",
	"SOUTHKALIMANTAN":   "KALIMANTANSELATAN",
	"EASTKALIMANTAN":    "KALIMANTANTIMUR",
	"NORTHKALIMANTAN":   "KALIMANTANUTARA",
	"NORTHSULAWESI":     "SULAWESIUTARA",
	"CENTRALSULAWESI":   "SULAWESITENGAH",
	"SOUTHSULAWESI":     "SULAWESISELATAN",
	"SOUTHEASTSULAWESI": "SULAWESITENGGARA",
	"WESTSULAWESI":      "SULAWESIBARAT",
	"NORTHMALUKU":       "MALUKUUTARA",
	"WESTPAPUA":         "PAPUABARAT",
}
