package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/ericyum/tour-agent-frontend/internal/backend"
	"github.com/ericyum/tour-agent-frontend/internal/course"
	"github.com/ericyum/tour-agent-frontend/internal/itinerary"
)

type harness struct {
	t       *testing.T
	dataDir string
	backend backend.Service
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	static, err := backend.NewStaticService(nil, fixedNow)
	require.NoError(t, err)
	return &harness{t: t, dataDir: t.TempDir(), backend: static}
}

func fixedNow() time.Time {
	return time.Date(2025, 11, 20, 9, 0, 0, 0, time.UTC)
}

// run executes one invocation, as a separate process would.
func (h *harness) run(args ...string) (string, error) {
	h.t.Helper()
	var out bytes.Buffer
	args = append([]string{"--data-dir", h.dataDir}, args...)
	err := Run(context.Background(), args, Options{Backend: h.backend, Out: &out, Err: &out, Now: fixedNow})
	return out.String(), err
}

func (h *harness) mustRun(args ...string) string {
	h.t.Helper()
	out, err := h.run(args...)
	require.NoError(h.t, err, out)
	return out
}

func TestHelpListsCommands(t *testing.T) {
	h := newHarness(t)
	out := h.mustRun("--help")
	for _, name := range []string{"search", "show", "rank", "course"} {
		require.Contains(t, out, name)
	}
	out = h.mustRun("course", "--help")
	for _, name := range []string{"ls", "add", "rm", "mv", "clear", "validate", "nearby"} {
		require.Contains(t, out, name)
	}
}

func TestSearch(t *testing.T) {
	h := newHarness(t)
	out := h.mustRun("search", "--area", "경상남도")
	require.Contains(t, out, "2 festivals")
	require.Contains(t, out, "진해군항제")
	require.Contains(t, out, "진주남강유등축제")
	require.NotContains(t, out, "서울빛초롱축제")

	out = h.mustRun("--json", "search", "--status", "ongoing")
	var res struct {
		Festivals []struct {
			Title string `json:"title"`
		} `json:"festivals"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	require.NotEmpty(t, res.Festivals)

	_, err := h.run("search", "--status", "someday")
	require.Error(t, err)
}

func TestShow(t *testing.T) {
	h := newHarness(t)
	out := h.mustRun("show", "서울빛초롱축제")
	require.Contains(t, out, "addr1")
	require.Contains(t, out, "빛의 축제")
	require.NotContains(t, out, "<b>")

	out = h.mustRun("show", "--kind", "facility", "청계천 공영주차장")
	require.Contains(t, out, "청계천로 85")

	_, err := h.run("show", "없는축제")
	require.Error(t, err)
}

func TestRank(t *testing.T) {
	h := newHarness(t)
	out := h.mustRun("rank", "진해군항제", "보령머드축제", "서울빛초롱축제", "--top", "2")
	require.Contains(t, out, "Ranking")
	require.Contains(t, out, "방문 만족도")

	_, err := h.run("rank", "진해군항제", "진해군항제")
	require.ErrorIs(t, err, course.ErrRankSelection)
}

func TestCourseLifecycle(t *testing.T) {
	h := newHarness(t)

	require.Contains(t, h.mustRun("course", "ls"), "empty")
	require.Contains(t, h.mustRun("course", "add", "서울빛초롱축제"), "1 in course")
	require.Contains(t, h.mustRun("course", "add", "--kind", "facility", "청계천 공영주차장"), "2 in course")
	require.Contains(t, h.mustRun("course", "add", "서울빛초롱축제"), "already")
	require.Contains(t, h.mustRun("course", "add", "--offline", "--kind", "course", "비밀 코스"), "3 in course")

	var items []map[string]any
	require.NoError(t, json.Unmarshal([]byte(h.mustRun("--json", "course", "ls")), &items))
	require.Len(t, items, 3)
	require.Equal(t, "서울빛초롱축제", items[0]["title"])
	require.Equal(t, "festival", items[0]["type"])
	require.Equal(t, "126.9779", items[0]["mapx"])
	require.Equal(t, map[string]any{"title": "비밀 코스", "type": "course"}, items[2])

	out := h.mustRun("course", "mv", "2", "1")
	require.Contains(t, out, "청계천 공영주차장")
	require.Contains(t, h.mustRun("course", "mv", "9", "1"), "Nothing moved")
	_, err := h.run("course", "mv", "one", "2")
	require.Error(t, err)

	require.Contains(t, h.mustRun("course", "nearby", "--radius", "5"), "청계천 야경 산책 코스")
	require.Contains(t, h.mustRun("course", "validate", "--duration", "당일치기"), "항목 수: 3")

	_, err = h.run("course", "validate", "--duration", "열흘")
	require.ErrorContains(t, err, "unknown duration")

	require.Contains(t, h.mustRun("course", "rm", "비밀 코스"), "2 in course")
	require.Contains(t, h.mustRun("course", "rm", "비밀 코스"), "not in the course")

	raw, err := os.ReadFile(filepath.Join(h.dataDir, "festmoment-course-storage.json"))
	require.NoError(t, err)
	loaded, err := itinerary.Decode(raw)
	require.NoError(t, err)
	require.Len(t, loaded, 2)
	require.Equal(t, "청계천 공영주차장", loaded[0].Title)

	require.Contains(t, h.mustRun("course", "clear"), "cleared")
	_, err = h.run("course", "validate")
	require.ErrorContains(t, err, "course is empty")
}

func TestCourseOwnersAreSeparate(t *testing.T) {
	h := newHarness(t)
	h.mustRun("--owner", "busan", "course", "add", "--offline", "해운대모래축제")
	require.Contains(t, h.mustRun("course", "ls"), "empty")
	require.Contains(t, h.mustRun("--owner", "busan", "course", "ls"), "해운대모래축제")
}

func TestCourseNearbyNeedsLocation(t *testing.T) {
	h := newHarness(t)
	h.mustRun("course", "add", "--offline", "--kind", "facility", "좌표 없는 장소")
	_, err := h.run("course", "nearby")
	require.ErrorContains(t, err, "no coordinates")
}

func TestCourseAddRejectsUnknownKind(t *testing.T) {
	h := newHarness(t)
	_, err := h.run("course", "add", "--kind", "hotel", "A")
	require.ErrorIs(t, err, itinerary.ErrInvalidKind)
}

func TestTableAlignsColumns(t *testing.T) {
	var buf bytes.Buffer
	tbl := newTable("", "#", "Title")
	tbl.add("1", "진해군항제")
	tbl.add("10", "A")
	tbl.render(&buf)
	lines := bytes.Split(bytes.TrimRight(buf.Bytes(), "\n"), []byte("\n"))
	require.Len(t, lines, 4)
	require.Contains(t, string(lines[2]), "진해군항제")
}
