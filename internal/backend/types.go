package backend

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Details is an opaque entity record (festival, course or facility) as the
// backend returns it. Keys follow the public tourism data fields: title, addr1,
// overview, mapx, mapy, contentid, eventstartdate and so on.
type Details map[string]any

// String renders key as text; numbers keep their literal form.
func (d Details) String(key string) string {
	switch v := d[key].(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(v)
	case json.Number:
		return v.String()
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case int:
		return strconv.Itoa(v)
	case bool:
		return strconv.FormatBool(v)
	default:
		return fmt.Sprint(v)
	}
}

// Title returns the record title.
func (d Details) Title() string { return d.String("title") }

// Float parses key as a number.
func (d Details) Float(key string) (float64, bool) {
	s := d.String(key)
	if s == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

// List returns key as a slice of records, for nested sub-points of a course.
func (d Details) List(key string) []Details {
	raw, ok := d[key].([]any)
	if !ok {
		return nil
	}
	out := make([]Details, 0, len(raw))
	for _, entry := range raw {
		if m, ok := entry.(map[string]any); ok {
			out = append(out, Details(m))
		}
	}
	return out
}

// Text is a scalar the backend sends either as a string or as a number.
type Text string

// UnmarshalJSON accepts strings, numbers, booleans and null.
func (t *Text) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if bytes.Equal(trimmed, []byte("null")) {
		*t = ""
		return nil
	}
	if len(trimmed) > 0 && trimmed[0] == '"' {
		var s string
		if err := json.Unmarshal(trimmed, &s); err != nil {
			return err
		}
		*t = Text(s)
		return nil
	}
	*t = Text(trimmed)
	return nil
}

// FestivalDetail is the festival page payload.
type FestivalDetail struct {
	Details       Details `json:"details"`
	IconPath      string  `json:"icon_path"`
	BestImagePath string  `json:"best_image_path"`
}

// Trend carries search-trend chart images (URLs or data URIs).
type Trend struct {
	YearlyTrend string `json:"yearly_trend"`
	EventTrend  string `json:"event_trend"`
	Message     string `json:"message"`
}

// DonutData is the positive/negative split.
type DonutData struct {
	Positive float64 `json:"positive"`
	Negative float64 `json:"negative"`
}

// SeriesData is a labelled histogram.
type SeriesData struct {
	Labels []string  `json:"labels"`
	Counts []float64 `json:"counts"`
}

// OutlierData is a box-plot summary.
type OutlierData struct {
	Min        float64   `json:"min"`
	Q1         float64   `json:"q1"`
	Median     float64   `json:"median"`
	Q3         float64   `json:"q3"`
	Max        float64   `json:"max"`
	LowerBound float64   `json:"lower_bound"`
	UpperBound float64   `json:"upper_bound"`
	Outliers   []float64 `json:"outliers"`
}

// SentimentCharts groups the chart aggregates. Layout is left to the renderer.
type SentimentCharts struct {
	Donut        *DonutData   `json:"donut_data,omitempty"`
	Satisfaction *SeriesData  `json:"satisfaction_data,omitempty"`
	Absolute     *SeriesData  `json:"absolute_data,omitempty"`
	Outlier      *OutlierData `json:"outlier_data,omitempty"`
}

// BlogResult is one analysed blog review.
type BlogResult struct {
	Title              string `json:"블로그 제목"`
	Link               string `json:"링크"`
	SentimentFrequency Text   `json:"감성 빈도"`
	SentimentScore     Text   `json:"감성 점수"`
	PositiveSentences  Text   `json:"긍정 문장 수"`
	NegativeSentences  Text   `json:"부정 문장 수"`
	PositiveRatio      Text   `json:"긍정 비율 (%)"`
	NegativeRatio      Text   `json:"부정 비율 (%)"`
	Summary            string `json:"긍/부정 문장 요약"`
	Satisfaction       Text   `json:"만족도 점수"`
}

// Sentiment is the review sentiment analysis of a festival.
type Sentiment struct {
	Summary            string          `json:"summary"`
	PositiveCount      int             `json:"positive_count"`
	NegativeCount      int             `json:"negative_count"`
	NeutralCount       int             `json:"neutral_count"`
	Charts             SentimentCharts `json:"charts"`
	BlogResults        []BlogResult    `json:"blog_results"`
	PositiveKeywords   string          `json:"positive_keywords"`
	NegativeSummary    string          `json:"negative_summary"`
	OutlierDescription string          `json:"outlier_description"`
	TotalScoreCount    int             `json:"total_score_count"`
	OutlierCount       int             `json:"outlier_count"`
	OverallSummary     string          `json:"overall_summary_text"`
}

// WordCloud is a base64-encoded image plus a status message.
type WordCloud struct {
	Image   string `json:"wordcloud"`
	Message string `json:"message"`
}

// RankedFestival is one entry of a ranking.
type RankedFestival struct {
	Title string  `json:"title"`
	Score float64 `json:"ranking_score"`
	Rank  int     `json:"rank"`
}

// Ranking is the outcome of comparing selected festivals.
type Ranking struct {
	Festivals []RankedFestival `json:"ranked_festivals"`
	Analysis  string           `json:"analysis"`
}

// UnmarshalJSON accepts both ranking layouts the backend has shipped:
// ranked_festivals/analysis and top_festivals/report.
func (r *Ranking) UnmarshalJSON(data []byte) error {
	var wire struct {
		Ranked []struct {
			Title string  `json:"title"`
			Score float64 `json:"ranking_score"`
		} `json:"ranked_festivals"`
		Top []struct {
			Name  string  `json:"name"`
			Score float64 `json:"score"`
			Rank  int     `json:"rank"`
		} `json:"top_festivals"`
		Analysis string `json:"analysis"`
		Report   string `json:"report"`
	}
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}
	out := Ranking{Analysis: wire.Analysis}
	if out.Analysis == "" {
		out.Analysis = wire.Report
	}
	for i, f := range wire.Ranked {
		out.Festivals = append(out.Festivals, RankedFestival{Title: f.Title, Score: f.Score, Rank: i + 1})
	}
	if len(out.Festivals) == 0 {
		for i, f := range wire.Top {
			rank := f.Rank
			if rank == 0 {
				rank = i + 1
			}
			out.Festivals = append(out.Festivals, RankedFestival{Title: f.Name, Score: f.Score, Rank: rank})
		}
	}
	*r = out
	return nil
}

// RenderedImage is one generated image.
type RenderedImage struct {
	ImageBase64 string `json:"image_base64"`
	Prompt      string `json:"prompt"`
}

// Rendering is the AI image generation result.
type Rendering struct {
	Representative *RenderedImage  `json:"representative_image"`
	Conditional    []RenderedImage `json:"conditional_images"`
}

// NearbyQuery locates recommendations around a point.
type NearbyQuery struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	// Radius in metres.
	Radius            int    `json:"radius"`
	CurrentFestivalID string `json:"current_festival_id,omitempty"`
}

// Nearby groups recommendations by kind. Entries carry a "dist" field in metres.
type Nearby struct {
	Facilities []Details `json:"facilities"`
	Courses    []Details `json:"courses"`
	Festivals  []Details `json:"festivals"`
}

// Empty reports whether nothing was found.
func (n Nearby) Empty() bool {
	return len(n.Facilities) == 0 && len(n.Courses) == 0 && len(n.Festivals) == 0
}
