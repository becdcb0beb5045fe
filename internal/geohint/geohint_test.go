package geohint

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"bansos-api/internal/wilayah"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSource struct {
	name  string
	hints map[string]Hint
}

func (f fakeSource) Name() string { return f.name }

func (f fakeSource) Lookup(ip string) (Hint, bool) {
	h, ok := f.hints[ip]
	return h, ok
}

var provinceOptions = []wilayah.Region{
	{ID: "31", Name: "DKI JAKARTA"},
	{ID: "32", Name: "JAWA BARAT"},
	{ID: "34", Name: "DI YOGYAKARTA"},
}

func provinces(calls *int) wilayah.Lookup {
	return wilayah.LookupFunc(func(_ context.Context, tier wilayah.Tier, _ string) ([]wilayah.Region, error) {
		*calls++
		if tier != wilayah.Province {
			return nil, errors.New("unexpected tier")
		}
		return provinceOptions, nil
	})
}

func TestResolver_ByRegionID(t *testing.T) {
	var calls int
	r := NewResolver(provinces(&calls), fakeSource{name: "geoip", hints: map[string]Hint{
		"36.68.0.1": {RegionID: "32", Name: "West Java"},
	}})

	res, ok, err := r.Resolve(context.Background(), "36.68.0.1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, wilayah.Region{ID: "32", Name: "JAWA BARAT"}, res.Region)
	assert.Equal(t, "geoip", res.Source)
}

func TestResolver_FallsThroughSources(t *testing.T) {
	var calls int
	r := NewResolver(provinces(&calls),
		fakeSource{name: "geoip", hints: map[string]Hint{"1.1.1.1": {Name: "Atlantis"}}},
		nil,
		fakeSource{name: "ip2region", hints: map[string]Hint{"1.1.1.1": {Name: "Yogyakarta"}}},
	)

	res, ok, err := r.Resolve(context.Background(), "1.1.1.1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "34", res.Region.ID)
	assert.Equal(t, "ip2region", res.Source)
	assert.Equal(t, 1, calls, "province options fetched once")
}

func TestResolver_NoHint(t *testing.T) {
	var calls int
	r := NewResolver(provinces(&calls), fakeSource{name: "geoip"})
	_, ok, err := r.Resolve(context.Background(), "8.8.8.8")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Zero(t, calls, "no hint means no lookup")

	var empty *Resolver
	assert.False(t, empty.Enabled())
	_, ok, err = empty.Resolve(context.Background(), "8.8.8.8")
	assert.NoError(t, err)
	assert.False(t, ok)
}

func TestResolver_LookupError(t *testing.T) {
	r := NewResolver(wilayah.LookupFunc(func(context.Context, wilayah.Tier, string) ([]wilayah.Region, error) {
		return nil, &wilayah.LookupError{Tier: wilayah.Province, Err: errors.New("timeout")}
	}), fakeSource{name: "geoip", hints: map[string]Hint{"x": {RegionID: "32"}}})

	_, _, err := r.Resolve(context.Background(), "x")
	assert.ErrorIs(t, err, wilayah.ErrLookup)
}

func TestMatchNames(t *testing.T) {
	for name, want := range map[string]string{
		"Jawa Barat":          "32",
		"Provinsi Jawa Barat": "32",
		"West Java":           "32",
		"Jakarta":             "31",
		"D.I. Yogyakarta":     "34",
	} {
		got, ok := match(provinceOptions, Hint{Name: name})
		if assert.True(t, ok, name) {
			assert.Equal(t, want, got.ID, name)
		}
	}
	_, ok := match(provinceOptions, Hint{})
	assert.False(t, ok)
}

func TestHintFromSubdivision(t *testing.T) {
	h, ok := hintFromSubdivision("ID-JB", "West Java")
	assert.True(t, ok)
	assert.Equal(t, "32", h.RegionID)

	h, ok = hintFromSubdivision("PA", "")
	assert.True(t, ok)
	assert.Equal(t, "94", h.RegionID)

	_, ok = hintFromSubdivision("", "")
	assert.False(t, ok)
}

func TestParseRegion(t *testing.T) {
	h, ok := parseRegion("Indonesia|0|Jawa Barat|Bandung|Telkom")
	assert.True(t, ok)
	assert.Equal(t, "Jawa Barat", h.Name)

	_, ok = parseRegion("中国|0|广东省|深圳市|电信")
	assert.False(t, ok)
	_, ok = parseRegion("印度尼西亚|0|0|0|0")
	assert.False(t, ok)
	_, ok = parseRegion("garbage")
	assert.False(t, ok)
}

// writeXDB 生成一个最小的 IPv4 xdb 文件：每个 /16 网段对应一条区域串
func writeXDB(t *testing.T, blocks map[[2]byte]string) string {
	t.Helper()
	const segSize = 14
	vecLen := 256 * 256 * 8
	buf := make([]byte, 256+vecLen)
	for b, region := range blocks {
		segPtr := uint32(len(buf))
		dataPtr := segPtr + segSize
		seg := make([]byte, segSize)
		start := binary.BigEndian.Uint32([]byte{b[0], b[1], 0, 0})
		end := binary.BigEndian.Uint32([]byte{b[0], b[1], 255, 255})
		binary.LittleEndian.PutUint32(seg[0:], start)
		binary.LittleEndian.PutUint32(seg[4:], end)
		binary.LittleEndian.PutUint16(seg[8:], uint16(len(region)))
		binary.LittleEndian.PutUint32(seg[10:], dataPtr)
		buf = append(buf, seg...)
		buf = append(buf, region...)
		idx := 256 + (int(b[0])*256+int(b[1]))*8
		binary.LittleEndian.PutUint32(buf[idx:], segPtr)
		binary.LittleEndian.PutUint32(buf[idx+4:], segPtr)
	}
	path := filepath.Join(t.TempDir(), "ip2region_v4.xdb")
	require.NoError(t, os.WriteFile(path, buf, 0o600))
	return path
}

func TestIP2Region_Lookup(t *testing.T) {
	path := writeXDB(t, map[[2]byte]string{
		{36, 66}:  "Indonesia|0|Jawa Barat|Bandung|Telkom",
		{103, 10}: "Indonesia|0|DKI Jakarta|Jakarta|Biznet",
		{8, 8}:    "United States|0|California|0|Google",
	})
	x, err := OpenIP2Region(path)
	require.NoError(t, err)
	defer x.Close()

	h, ok := x.Lookup(" 36.66.1.2 ")
	assert.True(t, ok)
	assert.Equal(t, "Jawa Barat", h.Name)

	_, ok = x.Lookup("8.8.8.8")
	assert.False(t, ok)
	_, ok = x.Lookup("10.0.0.1")
	assert.False(t, ok)
	_, ok = x.Lookup("not-an-ip")
	assert.False(t, ok)
}

func TestIP2Region_ConcurrentLookup(t *testing.T) {
	path := writeXDB(t, map[[2]byte]string{
		{36, 66}:  "Indonesia|0|Jawa Barat|Bandung|Telkom",
		{103, 10}: "Indonesia|0|DKI Jakarta|Jakarta|Biznet",
		{114, 4}:  "Indonesia|0|DI Yogyakarta|Sleman|Indosat",
	})
	x, err := OpenIP2Region(path)
	require.NoError(t, err)
	defer x.Close()

	want := map[string]string{
		"36.66":  "Jawa Barat",
		"103.10": "DKI Jakarta",
		"114.4":  "DI Yogyakarta",
	}
	prefixes := []string{"36.66", "103.10", "114.4"}

	var wg sync.WaitGroup
	errs := make(chan string, 64)
	for g := 0; g < 16; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for i := 0; i < 200; i++ {
				prefix := prefixes[(g+i)%len(prefixes)]
				ip := net.ParseIP(fmt.Sprintf("%s.%d.%d", prefix, g, i%256)).String()
				h, ok := x.Lookup(ip)
				if !ok || h.Name != want[prefix] {
					select {
					case errs <- fmt.Sprintf("%s -> %q (%v)", ip, h.Name, ok):
					default:
					}
					return
				}
			}
		}(g)
	}
	wg.Wait()
	close(errs)
	for e := range errs {
		t.Error(e)
	}
}

func TestOpenIP2Region_MissingFile(t *testing.T) {
	_, err := OpenIP2Region(filepath.Join(t.TempDir(), "missing.xdb"))
	assert.Error(t, err)
}

func TestNewResolverFromEnv_MissingFiles(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("GEOIP_CITY_PATH", filepath.Join(dir, "missing.mmdb"))
	t.Setenv("IP2REGION_V4_PATH", filepath.Join(dir, "missing.xdb"))
	r := NewResolverFromEnv(nil)
	assert.False(t, r.Enabled())
	r.Close()
}
