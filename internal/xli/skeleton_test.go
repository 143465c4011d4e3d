package xli_test

import (
	"context"
	"testing"

	"github.com/BuntinJP/xlog-images/internal/xli"
)

func TestExtractPostDate(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    xli.DateKey
		ok      bool
	}{
		{
			name:    "yaml front matter",
			content: "---\ntitle: hello\ndate: 2024-05-06\n---\nbody\n",
			want:    xli.DateKey{Year: 2024, Month: 5, Day: 6},
			ok:      true,
		},
		{
			name:    "quoted front matter date",
			content: "---\ndate: \"2024-05-06\"\n---\nbody\n",
			want:    xli.DateKey{Year: 2024, Month: 5, Day: 6},
			ok:      true,
		},
		{
			name:    "timestamped front matter date",
			content: "---\ndate: 2024-05-06T10:30:00+09:00\n---\nbody\n",
			want:    xli.DateKey{Year: 2024, Month: 5, Day: 6},
			ok:      true,
		},
		{
			name:    "toml-style assignment without front matter",
			content: "+++\ndate = \"2024-05-06\"\n+++\nbody\n",
			want:    xli.DateKey{Year: 2024, Month: 5, Day: 6},
			ok:      true,
		},
		{
			name:    "no date anywhere",
			content: "---\ntitle: hello\n---\nbody\n",
			ok:      false,
		},
		{
			name:    "empty document",
			content: "",
			ok:      false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := xli.ExtractPostDate([]byte(tt.content))
			if ok != tt.ok {
				t.Fatalf("ExtractPostDate() ok = %v, want %v", ok, tt.ok)
			}
			if ok && got != tt.want {
				t.Errorf("ExtractPostDate() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestDateKey_Dir(t *testing.T) {
	d := xli.DateKey{Year: 2024, Month: 5, Day: 6}
	// Month and day stay unpadded so directories match identity segments.
	if got := d.Dir(); got != "2024/5/6" {
		t.Errorf("Dir() = %q, want %q", got, "2024/5/6")
	}
}

func TestService_GenerateSkeleton(t *testing.T) {
	ctx := context.Background()
	cfg := xli.ServiceConfig{UploadRoot: "/upload", PostsRoot: "/posts"}

	t.Run("creates one directory per distinct date", func(t *testing.T) {
		svc, deps := newTestService(t, cfg)
		deps.fsmgr.AddText("/posts/first.md", "---\ndate: 2024-05-06\n---\nbody\n")
		deps.fsmgr.AddText("/posts/second.md", "---\ndate: 2024-05-06\n---\nbody\n")
		deps.fsmgr.AddText("/posts/third.md", "---\ndate: 2024-07-08\n---\nbody\n")
		deps.fsmgr.AddText("/posts/undated.md", "no date here\n")
		deps.fsmgr.AddText("/posts/readme.txt", "date: 2024-01-01\n")

		summary, err := svc.GenerateSkeleton(ctx)
		if err != nil {
			t.Fatalf("GenerateSkeleton() error = %v", err)
		}
		if summary.Posts != 4 {
			t.Errorf("GenerateSkeleton() posts = %d, want 4", summary.Posts)
		}
		if summary.Dates != 2 {
			t.Errorf("GenerateSkeleton() dates = %d, want 2", summary.Dates)
		}
		if !deps.fsmgr.HasDir("/upload/2024/5/6") || !deps.fsmgr.HasDir("/upload/2024/7/8") {
			t.Error("expected dated directories were not created")
		}
	})

	t.Run("rerun is safe", func(t *testing.T) {
		svc, deps := newTestService(t, cfg)
		deps.fsmgr.AddText("/posts/first.md", "---\ndate: 2024-05-06\n---\nbody\n")

		if _, err := svc.GenerateSkeleton(ctx); err != nil {
			t.Fatalf("first GenerateSkeleton() error = %v", err)
		}
		summary, err := svc.GenerateSkeleton(ctx)
		if err != nil {
			t.Fatalf("second GenerateSkeleton() error = %v", err)
		}
		if summary.Dates != 1 {
			t.Errorf("second GenerateSkeleton() dates = %d, want 1", summary.Dates)
		}
		if deps.fsmgr.DirCount() != 1 {
			t.Errorf("directory count = %d, want 1", deps.fsmgr.DirCount())
		}
	})
}
