package nju

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"campuscal/adapter"
	"campuscal/schedule"
)

const graduateName = "南京大学研究生"

// gsapp graduate timetable endpoints. The course list endpoint carries a
// cache-buster query string upstream; it is part of the URL the app uses.
type graduateAPI struct {
	allSemestersURL string
	coursesURL      string
	courseListURL   string
}

func defaultGraduateAPI() graduateAPI {
	const base = "https://ehallapp.nju.edu.cn/gsapp/sys/wdkbapp/modules/xskcb"
	return graduateAPI{
		allSemestersURL: base + "/kfdxnxqcx.do",
		coursesURL:      base + "/xspkjgcx.do",
		courseListURL:   base + "/xsjxrwcx.do?_=1765716674587",
	}
}

// Graduate serves the graduate timetable. The gsapp API splits a multi
// period class into one row per period, so rows are merged back before
// they become courses.
type Graduate struct {
	cas cas
	api graduateAPI
	tz  *time.Location
	now func() time.Time
}

// NewGraduate is the registry factory for the graduate adapter.
func NewGraduate(ctx context.Context, _ adapter.CredentialStore) (adapter.School, error) {
	return &Graduate{cas: defaultCAS(), api: defaultGraduateAPI(), tz: cstZone(), now: time.Now}, nil
}

func (g *Graduate) Name() string             { return graduateName }
func (g *Graduate) DisplayName() string      { return "南京大学" }
func (g *Graduate) Timezone() *time.Location { return g.tz }

func (g *Graduate) NewLoginSession(ctx context.Context) (adapter.LoginSession, error) {
	return newLoginSession(ctx, g.cas, graduateName)
}

func (g *Graduate) AuthenticatedClient(ctx context.Context, cred adapter.Credentials) (*http.Client, error) {
	return g.cas.authenticatedClient(ctx, graduateName, cred)
}

type graduateCourseRow struct {
	BJMC   string `json:"BJMC"`
	KCMC   string `json:"KCMC"`
	ZCBH   string `json:"ZCBH"`
	JASMC  string `json:"JASMC"`
	JSXM   string `json:"JSXM"`
	XKBZ   string `json:"XKBZ"`
	KCDM   string `json:"KCDM"`
	KSJCDM int    `json:"KSJCDM"`
	JSJCDM int    `json:"JSJCDM"`
	KSSJ   int    `json:"KSSJ"`
	JSSJ   int    `json:"JSSJ"`
	XQ     int    `json:"XQ"`
}

// Courses merges the split timetable rows and joins in campus names from
// the separate course list endpoint.
func (g *Graduate) Courses(ctx context.Context, client *http.Client) ([]schedule.Course, error) {
	semesterID, semesterStart, err := g.currentSemester(ctx, client)
	if err != nil {
		return nil, err
	}

	var courseResp struct {
		Datas struct {
			Courses rowsEnvelope[graduateCourseRow] `json:"xspkjgcx"`
		} `json:"datas"`
	}
	form := url.Values{}
	form.Set("XNXQDM", semesterID)
	form.Set("XH", "")
	if err := postForm(ctx, client, g.api.coursesURL, form, &courseResp); err != nil {
		return nil, err
	}
	rows := courseResp.Datas.Courses.Rows

	splits := make([]schedule.SplitRow, len(rows))
	for i, row := range rows {
		if row.BJMC == "" || row.ZCBH == "" {
			return nil, fmt.Errorf("%w: course row missing BJMC or ZCBH", adapter.ErrMalformedRow)
		}
		splits[i] = schedule.SplitRow{
			Name:        row.BJMC,
			Weekday:     row.XQ,
			StartPeriod: row.KSJCDM,
			EndPeriod:   row.JSJCDM,
			WeekBitmap:  row.ZCBH,
			Payload:     i,
		}
	}
	merged, err := schedule.MergeSplitRows(splits)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", adapter.ErrMalformedRow, err)
	}

	// A merged row's end period belongs to the last chained raw row;
	// its wall clock end time is looked up here.
	type slot struct {
		name      string
		weekday   int
		endPeriod int
	}
	endTimes := make(map[slot]int, len(rows))
	for _, row := range rows {
		endTimes[slot{row.BJMC, row.XQ, row.JSJCDM}] = row.JSSJ
	}

	campusByCourse, err := g.campusMap(ctx, client, semesterID)
	if err != nil {
		return nil, err
	}

	courses := make([]schedule.Course, 0, len(merged))
	for _, m := range merged {
		src := rows[m.Payload]
		endHHMM, ok := endTimes[slot{m.Name, m.Weekday, m.EndPeriod}]
		if !ok {
			return nil, fmt.Errorf("%w: no end time for %q weekday %d period %d", adapter.ErrMalformedRow, m.Name, m.Weekday, m.EndPeriod)
		}
		span, err := spanFromHHMM(src.KSSJ, endHHMM)
		if err != nil {
			return nil, fmt.Errorf("%w: %q: %v", adapter.ErrMalformedRow, m.Name, err)
		}

		var occurrences []schedule.Occurrence
		for i, c := range m.WeekBitmap {
			if c != '1' {
				continue
			}
			ct := schedule.CourseTime{Span: span, Weekday: m.Weekday, Week: i + 1}
			start, end, err := ct.WindowOn(semesterStart, g.tz)
			if err != nil {
				return nil, fmt.Errorf("course %q: %w", m.Name, err)
			}
			occurrences = append(occurrences, schedule.Occurrence{Start: start, End: end})
		}

		note := src.XKBZ
		if note == "" {
			note = "无备注"
		}
		courses = append(courses, schedule.Course{
			Name:     src.KCMC,
			Location: strings.TrimSpace(src.JASMC),
			Campus:   campusByCourse[src.KCDM],
			Notes: []string{
				"教师：" + src.JSXM,
				"选课备注：" + note,
			},
			Times: occurrences,
		})
	}
	return courses, nil
}

// currentSemester picks the latest semester whose timetable opened no
// later than two weeks from now, so the upcoming semester appears before
// it formally starts.
func (g *Graduate) currentSemester(ctx context.Context, client *http.Client) (string, time.Time, error) {
	var resp struct {
		Datas struct {
			Semesters rowsEnvelope[struct {
				XNXQDM string `json:"XNXQDM"`
				KBKFRQ string `json:"KBKFRQ"`
			}] `json:"kfdxnxqcx"`
		} `json:"datas"`
	}
	if err := postForm(ctx, client, g.api.allSemestersURL, url.Values{}, &resp); err != nil {
		return "", time.Time{}, err
	}

	cutoff := g.now().In(g.tz).AddDate(0, 0, 14)
	var bestID string
	var bestStart time.Time
	for _, row := range resp.Datas.Semesters.Rows {
		start, err := time.ParseInLocation("2006-01-02 15:04:05", row.KBKFRQ, g.tz)
		if err != nil || start.After(cutoff) {
			continue
		}
		if bestID == "" || start.After(bestStart) {
			bestID, bestStart = row.XNXQDM, start
		}
	}
	if bestID == "" {
		return "", time.Time{}, &adapter.ScrapeError{Page: "graduate semesters", Missing: "open semester"}
	}
	return bestID, mondayOf(bestStart), nil
}

func (g *Graduate) campusMap(ctx context.Context, client *http.Client, semesterID string) (map[string]string, error) {
	var resp struct {
		Datas struct {
			List rowsEnvelope[struct {
				KCDM   string `json:"KCDM"`
				Campus string `json:"XQDM_DISPLAY"`
			}] `json:"xsjxrwcx"`
		} `json:"datas"`
	}
	form := url.Values{}
	form.Set("XNXQDM", semesterID)
	form.Set("XH", "")
	form.Set("pageNumber", "1")
	form.Set("pageSize", "100")
	if err := postForm(ctx, client, g.api.courseListURL, form, &resp); err != nil {
		return nil, err
	}

	campus := make(map[string]string, len(resp.Datas.List.Rows))
	for _, row := range resp.Datas.List.Rows {
		campus[row.KCDM] = row.Campus
	}
	return campus, nil
}

func spanFromHHMM(start, end int) (schedule.TimeSpan, error) {
	startClock, err := clockFromHHMM(start)
	if err != nil {
		return schedule.TimeSpan{}, err
	}
	endClock, err := clockFromHHMM(end)
	if err != nil {
		return schedule.TimeSpan{}, err
	}
	return schedule.TimeSpan{Start: startClock, End: endClock}, nil
}

func clockFromHHMM(v int) (schedule.Clock, error) {
	hour, minute := v/100, v%100
	if hour < 0 || hour > 23 || minute < 0 || minute > 59 {
		return schedule.Clock{}, fmt.Errorf("bad wall clock value %d", v)
	}
	return schedule.Clock{Hour: hour, Minute: minute}, nil
}
