package editor_test

import (
	"testing"

	"algocrack/internal/editor"
	"algocrack/internal/problem"
	"algocrack/internal/submission/model"
	"algocrack/internal/testutil"
)

func served() []problem.TestCase {
	return []problem.TestCase{
		{ID: 1, Input: "[2,7,11,15]\n9", Type: problem.TestCaseTypeDefault},
		{ID: 2, Input: "[3,2,4]\n6", Type: problem.TestCaseTypeDefault},
		{ID: 3, Input: "[3,3]\n6", Type: problem.TestCaseTypeDefault},
	}
}

func inputs(in []model.TestCaseInput) []string {
	out := make([]string, len(in))
	for i, tc := range in {
		out[i] = tc.Input
	}
	return out
}

func TestInitializeMarksDefaults(t *testing.T) {
	tcs := editor.NewTestCases(served())
	testutil.AssertEqual(t, tcs.Len(), 3, "length")
	for i, tc := range tcs.All() {
		if tc.ID == nil || tc.IsUserAdded || tc.IsModified || tc.OriginalInput == nil || *tc.OriginalInput != tc.Input {
			t.Fatalf("testcase %d not initialised as default: %+v", i, tc)
		}
	}
	testutil.AssertEqual(t, tcs.Active(), 0, "active index")
}

func TestRemoveDefaultIsNoop(t *testing.T) {
	tcs := editor.NewTestCases(served())
	before := inputs(tcs.SerializeForRun())
	for i := 0; i < tcs.Len(); i++ {
		if tcs.Remove(i) {
			t.Fatalf("default testcase %d was removed", i)
		}
	}
	after := inputs(tcs.SerializeForRun())
	testutil.AssertEqual(t, len(after), len(before), "length")
	for i := range before {
		testutil.AssertEqual(t, after[i], before[i], "input")
	}
}

func TestResetUserAddedIsNoop(t *testing.T) {
	tcs := editor.NewTestCases(served())
	idx := tcs.Add("first")
	tcs.UpdateInput(idx, "edited")
	if tcs.Reset(idx) {
		t.Fatalf("reset of user-added testcase reported a change")
	}
	tc, _ := tcs.At(idx)
	testutil.AssertEqual(t, tc.Input, "edited", "user-added input")
	testutil.AssertFalse(t, tc.IsModified, "user-added testcases are never modified")
}

func TestUpdateInputTracksModification(t *testing.T) {
	tcs := editor.NewTestCases(served())
	tcs.UpdateInput(1, "changed")
	tc, _ := tcs.At(1)
	testutil.AssertTrue(t, tc.IsModified, "different text is modified")

	tcs.UpdateInput(1, "[3,2,4]\n6")
	tc, _ = tcs.At(1)
	testutil.AssertFalse(t, tc.IsModified, "original text is not modified")

	if tcs.UpdateInput(9, "x") {
		t.Fatalf("out of range update reported a change")
	}
}

func TestResetRestoresDefault(t *testing.T) {
	tcs := editor.NewTestCases(served())
	tcs.UpdateInput(0, "changed")
	if !tcs.Reset(0) {
		t.Fatalf("reset of default reported no change")
	}
	tc, _ := tcs.At(0)
	testutil.AssertEqual(t, tc.Input, "[2,7,11,15]\n9", "input")
	testutil.AssertFalse(t, tc.IsModified, "modified flag")
}

func TestAddSelectsAndSerializesLast(t *testing.T) {
	tcs := editor.NewTestCases(served())
	idx := tcs.Add(`{"nums":[1,2,3],"target":5}`)
	testutil.AssertEqual(t, idx, 3, "new index")
	testutil.AssertEqual(t, tcs.Active(), 3, "active index")

	run := tcs.SerializeForRun()
	testutil.AssertEqual(t, run[len(run)-1].Input, `{"nums":[1,2,3],"target":5}`, "last input")
}

func TestRemoveClampsActive(t *testing.T) {
	tcs := editor.NewTestCases(served())
	tcs.Add("a")
	last := tcs.Add("b")
	if !tcs.Remove(last) {
		t.Fatalf("remove of user-added testcase failed")
	}
	testutil.AssertEqual(t, tcs.Active(), 3, "active index clamped")
	testutil.AssertEqual(t, tcs.Len(), 4, "length")

	tcs.SetActive(1)
	tcs.Remove(3)
	testutil.AssertEqual(t, tcs.Active(), 1, "active index kept when in range")
}

func TestResetAllReproducesDefaults(t *testing.T) {
	tcs := editor.NewTestCases(served())
	want := inputs(tcs.SerializeForRun())

	tcs.UpdateInput(0, "x")
	tcs.UpdateInput(2, "y")
	tcs.Add("z")
	tcs.Add("w")
	tcs.Remove(3)
	tcs.SetActive(2)
	tcs.ResetAll()

	got := inputs(tcs.SerializeForRun())
	testutil.AssertEqual(t, len(got), len(want), "length")
	for i := range want {
		testutil.AssertEqual(t, got[i], want[i], "input")
	}
	testutil.AssertEqual(t, tcs.Active(), 0, "active index")
	for _, tc := range tcs.All() {
		testutil.AssertFalse(t, tc.IsModified || tc.IsUserAdded, "reset entries are pristine defaults")
	}
}

func TestSerializeOrdersDefaultsThenAdded(t *testing.T) {
	tcs := editor.NewTestCases(served())
	tcs.Add("u1")
	tcs.UpdateInput(1, "edited")
	tcs.Add("u2")
	got := inputs(tcs.SerializeForRun())
	want := []string{"[2,7,11,15]\n9", "edited", "[3,3]\n6", "u1", "u2"}
	for i := range want {
		testutil.AssertEqual(t, got[i], want[i], "input")
	}
}
