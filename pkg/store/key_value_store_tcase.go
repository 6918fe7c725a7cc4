package store

import (
	"context"
	"testing"

	"4d63.com/optional"
)

func checkMapEqual(t testing.TB, expected map[int]string, got map[int]string) {
	if len(expected) != len(got) {
		t.Fatalf("expected and got have different length. expected: %v, got: %v", expected, got)
	}
	for k, v := range expected {
		vgot := got[k]
		if vgot != v {
			t.Fatalf("k: %d, expected: %s, got: %s", k, v, vgot)
		}
	}
}

func checkErr(err error, t testing.TB) {
	if err != nil {
		t.Fatal(err.Error())
	}
}

func ShouldGetWhatWasPut(ctx context.Context, st KeyValueStore[int, string], t testing.TB) {
	checkErr(st.Put(ctx, 1, "one"), t)
	val, ok, err := st.Get(ctx, 1)
	checkErr(err, t)
	if !ok {
		t.Fatal("1 should be in the table")
	}
	if val != "one" {
		t.Fatalf("expected one, got %s", val)
	}
}

func ShouldNotIncludeDeletedFromRangeResult(ctx context.Context, st KeyValueStore[int, string], t testing.TB) {
	checkErr(st.Put(ctx, 0, "zero"), t)
	checkErr(st.Put(ctx, 1, "one"), t)
	checkErr(st.Put(ctx, 2, "two"), t)
	checkErr(st.Delete(ctx, 0), t)
	checkErr(st.Delete(ctx, 1), t)

	expected := map[int]string{2: "two"}
	ret := make(map[int]string)
	err := st.Range(ctx, optional.Empty[int](), optional.Empty[int](),
		func(kt int, vt string) error {
			ret[kt] = vt
			return nil
		})
	checkErr(err, t)
	checkMapEqual(t, expected, ret)
}

func ShouldRespectRangeBounds(ctx context.Context, st KeyValueStore[int, string], t testing.TB) {
	for k, v := range map[int]string{0: "zero", 1: "one", 2: "two", 3: "three"} {
		checkErr(st.Put(ctx, k, v), t)
	}
	expected := map[int]string{1: "one", 2: "two"}
	ret := make(map[int]string)
	err := st.Range(ctx, optional.Of(1), optional.Of(2),
		func(kt int, vt string) error {
			ret[kt] = vt
			return nil
		})
	checkErr(err, t)
	checkMapEqual(t, expected, ret)
}

func ShouldNotOverwriteWithPutIfAbsent(ctx context.Context, st KeyValueStore[int, string], t testing.TB) {
	prev, err := st.PutIfAbsent(ctx, 7, "seven")
	checkErr(err, t)
	if _, ok := prev.Get(); ok {
		t.Fatal("7 should not have been present")
	}
	prev, err = st.PutIfAbsent(ctx, 7, "SEVEN")
	checkErr(err, t)
	prevVal, ok := prev.Get()
	if !ok {
		t.Fatal("7 should have been present")
	}
	if prevVal != "seven" {
		t.Fatalf("expected seven, got %s", prevVal)
	}
	val, _, err := st.Get(ctx, 7)
	checkErr(err, t)
	if val != "seven" {
		t.Fatalf("PutIfAbsent overwrote: got %s", val)
	}
}
