package ring

import "testing"

func TestAppendEvictsOldest(t *testing.T) {
	r := New(3, 4, 4)

	for i := 0; i < 5; i++ {
		r.Append(Frame{CapturedAt: int64(i)})
	}

	if got := r.Len(); got != 3 {
		t.Fatalf("Len() = %d, want 3", got)
	}

	frames := r.SnapshotTail(3)
	want := []int64{2, 3, 4}
	for i, f := range frames {
		if f.CapturedAt != want[i] {
			t.Errorf("frame[%d].CapturedAt = %d, want %d", i, f.CapturedAt, want[i])
		}
	}
}

func TestSnapshotTailFewerThanRequested(t *testing.T) {
	r := New(10, 4, 4)
	r.Append(Frame{CapturedAt: 1})
	r.Append(Frame{CapturedAt: 2})

	frames := r.SnapshotTail(10)
	if len(frames) != 2 {
		t.Fatalf("len(frames) = %d, want 2", len(frames))
	}
	if frames[0].CapturedAt != 1 || frames[1].CapturedAt != 2 {
		t.Errorf("frames out of order: %+v", frames)
	}
}

func TestSnapshotTailEmpty(t *testing.T) {
	r := New(5, 4, 4)
	if frames := r.SnapshotTail(5); frames != nil {
		t.Errorf("SnapshotTail on empty ring = %v, want nil", frames)
	}
}

func TestSnapshotIsIndependentCopy(t *testing.T) {
	r := New(3, 4, 4)
	r.Append(Frame{CapturedAt: 1})

	snap := r.SnapshotTail(1)
	r.Append(Frame{CapturedAt: 2})
	r.Append(Frame{CapturedAt: 3})
	r.Append(Frame{CapturedAt: 4})

	if snap[0].CapturedAt != 1 {
		t.Errorf("snapshot mutated after further appends: got %d, want 1", snap[0].CapturedAt)
	}
}
