package upstream

import "testing"

func TestRawBlockBlockNum(t *testing.T) {
	cases := []struct {
		name    string
		blockID string
		want    uint64
		wantErr bool
	}{
		{name: "zero", blockID: "00000000abcdef0123456789abcdef0123456789", want: 0},
		{name: "one", blockID: "00000001abcdef0123456789abcdef0123456789", want: 1},
		{name: "large", blockID: "05f5e100abcdef0123456789abcdef0123456789", want: 100000000},
		{name: "too short", blockID: "abcd", wantErr: true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			b := RawBlock{BlockID: tc.blockID}
			got, err := b.BlockNum()
			if tc.wantErr {
				if err == nil {
					t.Fatalf("BlockNum(%q) = %d, nil; want error", tc.blockID, got)
				}
				return
			}
			if err != nil {
				t.Fatalf("BlockNum(%q) error: %v", tc.blockID, err)
			}
			if got != tc.want {
				t.Errorf("BlockNum(%q) = %d, want %d", tc.blockID, got, tc.want)
			}
		})
	}
}

func TestAssetAmount(t *testing.T) {
	cases := []struct {
		in      string
		want    float64
		wantErr bool
	}{
		{in: "123.456 STEEM", want: 123.456},
		{in: "0.000 SBD", want: 0},
		{in: "", wantErr: true},
	}
	for _, tc := range cases {
		got, err := AssetAmount(tc.in)
		if tc.wantErr {
			if err == nil {
				t.Errorf("AssetAmount(%q) = %v, nil; want error", tc.in, got)
			}
			continue
		}
		if err != nil {
			t.Fatalf("AssetAmount(%q) error: %v", tc.in, err)
		}
		if got != tc.want {
			t.Errorf("AssetAmount(%q) = %v, want %v", tc.in, got, tc.want)
		}
	}
}
