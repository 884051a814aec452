package registry

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wininvestigator/internal/winerr"
)

func sampleHive() *memHive {
	h := newMemHive()
	lm := h.root(LocalMachine)
	sw := lm.add(`SOFTWARE`)
	sw.add(`Vendor\Product`).
		set("Version", Value{Kind: KindString, Data: "1.2.3"}).
		set("InstallCount", Value{Kind: KindDWord, Data: uint32(255)})
	sw.add(`vendor2\ProductTools`).
		set("Path", Value{Kind: KindExpandString, Data: `C:\Tools`})
	sw.add(`Other`).
		set("Blob", Value{Kind: KindBinary, Data: []byte{0x01, 0xAB, 0xff}}).
		set("zeta", Value{Kind: KindMultiString, Data: []string{"a", "b"}}).
		set("Alpha", Value{Kind: KindQWord, Data: uint64(4096)})
	return h
}

func TestParsePath(t *testing.T) {
	tests := []struct {
		in   string
		root Root
		sub  string
		ok   bool
	}{
		{`HKLM\SOFTWARE\Microsoft`, LocalMachine, `SOFTWARE\Microsoft`, true},
		{`hkey_current_user\Software\`, CurrentUser, `Software`, true},
		{`HKCR`, ClassesRoot, ``, true},
		{`HKU\.DEFAULT`, Users, `.DEFAULT`, true},
		{`HKCC\System`, CurrentConfig, `System`, true},
		{`HKXX\Foo`, 0, ``, false},
	}
	for _, tt := range tests {
		root, sub, ok := ParsePath(tt.in)
		assert.Equal(t, tt.ok, ok, tt.in)
		assert.Equal(t, tt.root, root, tt.in)
		assert.Equal(t, tt.sub, sub, tt.in)
	}
}

func TestDisplay(t *testing.T) {
	assert.Equal(t, "01 AB FF", Display(Value{Kind: KindBinary, Data: []byte{0x01, 0xAB, 0xFF}}))
	assert.Equal(t, "a; b; c", Display(Value{Kind: KindMultiString, Data: []string{"a", "b", "c"}}))
	assert.Equal(t, "255 (0xFF)", Display(Value{Kind: KindDWord, Data: uint32(255)}))
	assert.Equal(t, "4096 (0x1000)", Display(Value{Kind: KindQWord, Data: uint64(4096)}))
	assert.Equal(t, "text", Display(Value{Kind: KindString, Data: "text"}))
	assert.Equal(t, "", Display(Value{Kind: KindBinary, Data: []byte{}}))
}

func TestGetKeySortsNamesAndValues(t *testing.T) {
	svc := NewService(sampleHive(), nil)
	info, err := svc.GetKey(context.Background(), `HKLM\SOFTWARE\Other`)
	require.NoError(t, err)
	require.NotNil(t, info)
	assert.Equal(t, `HKLM\SOFTWARE\Other`, info.Path)
	require.Len(t, info.Values, 3)
	assert.Equal(t, "Alpha", info.Values[0].Name)
	assert.Equal(t, "QWord", info.Values[0].Type)
	assert.Equal(t, "Blob", info.Values[1].Name)
	assert.Equal(t, "01 AB FF", info.Values[1].DisplayValue)
	assert.Equal(t, "zeta", info.Values[2].Name)

	top, err := svc.GetKey(context.Background(), `HKLM\SOFTWARE`)
	require.NoError(t, err)
	assert.Equal(t, []string{"Other", "Vendor", "vendor2"}, top.SubKeyNames)
}

func TestGetKeyMissing(t *testing.T) {
	svc := NewService(sampleHive(), nil)
	info, err := svc.GetKey(context.Background(), `HKLM\SOFTWARE\Missing`)
	require.NoError(t, err)
	assert.Nil(t, info)

	info, err = svc.GetKey(context.Background(), `BOGUS\SOFTWARE`)
	require.NoError(t, err)
	assert.Nil(t, info)
}

func TestGetKeyAccessDenied(t *testing.T) {
	h := sampleHive()
	h.root(LocalMachine).add(`SECURITY`).denied = true
	_, err := NewService(h, nil).GetKey(context.Background(), `HKLM\SECURITY`)
	assert.Equal(t, winerr.KindAccessDenied, winerr.KindOf(err))
}

func TestGetValue(t *testing.T) {
	h := sampleHive()
	h.root(LocalMachine).add(`SOFTWARE\Vendor`).set("", Value{Kind: KindString, Data: "default"})
	svc := NewService(h, nil)

	v, err := svc.GetValue(context.Background(), `HKLM\SOFTWARE\Vendor\Product`, "InstallCount")
	require.NoError(t, err)
	require.NotNil(t, v)
	assert.Equal(t, "DWord", v.Type)
	assert.Equal(t, "255 (0xFF)", v.DisplayValue)

	def, err := svc.GetValue(context.Background(), `HKLM\SOFTWARE\Vendor`, "")
	require.NoError(t, err)
	require.NotNil(t, def)
	assert.Equal(t, "default", def.DisplayValue)

	missing, err := svc.GetValue(context.Background(), `HKLM\SOFTWARE\Vendor`, "Nope")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestSearchKeysMatchesNamesDepthFirst(t *testing.T) {
	svc := NewService(sampleHive(), nil)
	keys, err := svc.SearchKeys(context.Background(), `HKLM\SOFTWARE\`, "product", 100)
	require.NoError(t, err)
	assert.Equal(t, []string{
		`HKLM\SOFTWARE\Vendor\Product`,
		`HKLM\SOFTWARE\vendor2\ProductTools`,
	}, keys)
}

func TestSearchKeysRecursesThroughNonMatching(t *testing.T) {
	svc := NewService(sampleHive(), nil)
	keys, err := svc.SearchKeys(context.Background(), `HKLM`, "^vendor", 100)
	require.NoError(t, err)
	assert.Equal(t, []string{`HKLM\SOFTWARE\Vendor`, `HKLM\SOFTWARE\vendor2`}, keys)
}

func TestSearchKeysRespectsMaxResults(t *testing.T) {
	h := newMemHive()
	base := h.root(CurrentUser).add("Software")
	for i := 0; i < 20; i++ {
		base.add("Key" + strings.Repeat("x", i))
	}
	keys, err := NewService(h, nil).SearchKeys(context.Background(), `HKCU\Software`, "key", 7)
	require.NoError(t, err)
	assert.Len(t, keys, 7)
	assert.Equal(t, `HKCU\Software\Key`, keys[0])
}

func TestSearchKeysDepthCeiling(t *testing.T) {
	h := newMemHive()
	h.root(LocalMachine).add(strings.TrimSuffix(strings.Repeat(`k\`, 15), `\`))

	keys, err := NewService(h, nil).SearchKeys(context.Background(), `HKLM`, "^k$", 100)
	require.NoError(t, err)
	require.Len(t, keys, MaxSearchDepth+1)
	for _, k := range keys {
		_, sub, _ := ParsePath(k)
		assert.LessOrEqual(t, depth(sub), MaxSearchDepth, k)
	}
}

func TestSearchKeysSkipsInaccessible(t *testing.T) {
	h := sampleHive()
	locked := h.root(LocalMachine).add(`SOFTWARE\Locked`)
	locked.add(`ProductSecret`)
	locked.denied = true

	keys, err := NewService(h, nil).SearchKeys(context.Background(), `HKLM\SOFTWARE`, "product|locked", 100)
	require.NoError(t, err)
	for _, k := range keys {
		assert.NotContains(t, k, "Locked")
	}
	assert.Contains(t, keys, `HKLM\SOFTWARE\Vendor\Product`)
	assert.Contains(t, keys, `HKLM\SOFTWARE\vendor2\ProductTools`)
}

func TestSearchMissingBaseIsEmpty(t *testing.T) {
	svc := NewService(sampleHive(), nil)
	keys, err := svc.SearchKeys(context.Background(), `HKLM\SOFTWARE\DoesNotExist`, ".*", 10)
	require.NoError(t, err)
	assert.NotNil(t, keys)
	assert.Empty(t, keys)

	values, err := svc.SearchValues(context.Background(), `HKXX\Nothing`, ".*", 10)
	require.NoError(t, err)
	assert.Empty(t, values)
}

func TestSearchRejectsInvalidInputBeforeOpening(t *testing.T) {
	h := sampleHive()
	svc := NewService(h, nil)

	_, err := svc.SearchKeys(context.Background(), `HKLM\SOFTWARE`, "[invalid(regex", 10)
	assert.Equal(t, winerr.KindInvalidArgument, winerr.KindOf(err))
	_, err = svc.SearchValues(context.Background(), `HKLM\SOFTWARE`, "x", 0)
	assert.Equal(t, winerr.KindInvalidArgument, winerr.KindOf(err))
	_, err = svc.SearchKeys(context.Background(), ` `, "x", 10)
	assert.Equal(t, winerr.KindInvalidArgument, winerr.KindOf(err))
	assert.Empty(t, h.opens)
}

func TestSearchValuesMatchesNameOrData(t *testing.T) {
	svc := NewService(sampleHive(), nil)
	values, err := svc.SearchValues(context.Background(), `HKLM\SOFTWARE`, `version|c:\\tools|0xFF`, 100)
	require.NoError(t, err)
	require.Len(t, values, 3)

	assert.Equal(t, `HKLM\SOFTWARE\Vendor\Product\Version`, values[0].Name)
	assert.Equal(t, `HKLM\SOFTWARE\Vendor\Product`, values[0].KeyPath)
	assert.Equal(t, `HKLM\SOFTWARE\Vendor\Product\InstallCount`, values[1].Name)
	assert.Equal(t, `HKLM\SOFTWARE\vendor2\ProductTools\Path`, values[2].Name)
	assert.Equal(t, "ExpandString", values[2].Type)
}

func TestSearchValuesIncludesBaseKeyAndHonoursMax(t *testing.T) {
	h := newMemHive()
	base := h.root(LocalMachine).add(`SOFTWARE\App`)
	base.set("LogLevel", Value{Kind: KindString, Data: "debug"})
	base.add("Sub").set("LogPath", Value{Kind: KindString, Data: "x"}).set("LogSize", Value{Kind: KindDWord, Data: uint32(1)})

	values, err := NewService(h, nil).SearchValues(context.Background(), `HKLM\SOFTWARE\App`, "^log", 2)
	require.NoError(t, err)
	require.Len(t, values, 2)
	assert.Equal(t, `HKLM\SOFTWARE\App\LogLevel`, values[0].Name)
	assert.Equal(t, `HKLM\SOFTWARE\App\Sub\LogPath`, values[1].Name)
}
