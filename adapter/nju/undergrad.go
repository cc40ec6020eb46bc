package nju

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"campuscal/adapter"
	"campuscal/schedule"
)

const undergradName = "南京大学本科生"

// ehall undergraduate timetable endpoints.
type undergradAPI struct {
	currSemesterURL string
	allSemestersURL string
	coursesURL      string
	finalExamsURL   string
}

func defaultUndergradAPI() undergradAPI {
	const base = "https://ehallapp.nju.edu.cn/jwapp/sys"
	return undergradAPI{
		currSemesterURL: base + "/wdkb/modules/jshkcb/dqxnxq.do",
		allSemestersURL: base + "/wdkb/modules/jshkcb/cxjcs.do",
		coursesURL:      base + "/wdkb/modules/xskcb/cxxszhxqkb.do",
		finalExamsURL:   base + "/studentWdksapApp/WdksapController/cxxsksap.do",
	}
}

// Undergrad serves the undergraduate timetable, which reports course times
// as period indices against a fixed campus-wide period table.
type Undergrad struct {
	cas cas
	api undergradAPI
	tz  *time.Location
}

// NewUndergrad is the registry factory for the undergraduate adapter.
func NewUndergrad(ctx context.Context, _ adapter.CredentialStore) (adapter.School, error) {
	return &Undergrad{cas: defaultCAS(), api: defaultUndergradAPI(), tz: cstZone()}, nil
}

func (u *Undergrad) Name() string             { return undergradName }
func (u *Undergrad) DisplayName() string      { return "南京大学" }
func (u *Undergrad) Timezone() *time.Location { return u.tz }

func (u *Undergrad) NewLoginSession(ctx context.Context) (adapter.LoginSession, error) {
	return newLoginSession(ctx, u.cas, undergradName)
}

func (u *Undergrad) AuthenticatedClient(ctx context.Context, cred adapter.Credentials) (*http.Client, error) {
	return u.cas.authenticatedClient(ctx, undergradName, cred)
}

type undergradCourseRow struct {
	KCM    string `json:"KCM"`
	JASMC  string `json:"JASMC"`
	JXBMC  string `json:"JXBMC"`
	JSHS   string `json:"JSHS"`
	SKBJ   string `json:"SKBJ"`
	SKZC   string `json:"SKZC"`
	KSJC   string `json:"KSJC"`
	JSJC   string `json:"JSJC"`
	SKXQ   string `json:"SKXQ"`
	Campus string `json:"XXXQDM_DISPLAY"`
}

type undergradExamRow struct {
	KCM    string `json:"KCM"`
	JASMC  string `json:"JASMC"`
	KSRQ   string `json:"KSRQ"`
	KSKSSJ string `json:"KSKSSJ"`
	KSJSSJ string `json:"KSJSSJ"`
	ZJJSXM string `json:"ZJJSXM"`
}

type rowsEnvelope[T any] struct {
	Rows []T `json:"rows"`
}

// Courses assembles the semester's regular courses plus final exams.
func (u *Undergrad) Courses(ctx context.Context, client *http.Client) ([]schedule.Course, error) {
	semesterID, err := u.currentSemesterID(ctx, client)
	if err != nil {
		return nil, err
	}
	semesterStart, err := u.semesterStart(ctx, client, semesterID)
	if err != nil {
		return nil, err
	}

	var courseResp struct {
		Datas struct {
			Courses rowsEnvelope[undergradCourseRow] `json:"cxxszhxqkb"`
		} `json:"datas"`
	}
	form := url.Values{}
	form.Set("XNXQDM", semesterID)
	form.Set("pageSize", "9999")
	form.Set("pageNumber", "1")
	if err := postForm(ctx, client, u.api.coursesURL, form, &courseResp); err != nil {
		return nil, err
	}

	courses := make([]schedule.Course, 0, len(courseResp.Datas.Courses.Rows))
	for _, row := range courseResp.Datas.Courses.Rows {
		course, err := u.rowToCourse(row, semesterStart)
		if err != nil {
			return nil, err
		}
		courses = append(courses, course)
	}

	exams, err := u.finalExams(ctx, client, semesterID)
	if err != nil {
		return nil, err
	}
	return append(courses, exams...), nil
}

func (u *Undergrad) currentSemesterID(ctx context.Context, client *http.Client) (string, error) {
	var resp struct {
		Datas struct {
			Curr rowsEnvelope[struct {
				DM string `json:"DM"`
			}] `json:"dqxnxq"`
		} `json:"datas"`
	}
	if err := getJSON(ctx, client, u.api.currSemesterURL, &resp); err != nil {
		return "", err
	}
	rows := resp.Datas.Curr.Rows
	if len(rows) == 0 {
		return "", &adapter.ScrapeError{Page: "current semester", Missing: "semester rows"}
	}
	return rows[len(rows)-1].DM, nil
}

func (u *Undergrad) semesterStart(ctx context.Context, client *http.Client, semesterID string) (time.Time, error) {
	var resp struct {
		Datas struct {
			All rowsEnvelope[struct {
				XN     string `json:"XN"`
				XQ     string `json:"XQ"`
				XQKSRQ string `json:"XQKSRQ"`
			}] `json:"cxjcs"`
		} `json:"datas"`
	}
	if err := getJSON(ctx, client, u.api.allSemestersURL, &resp); err != nil {
		return time.Time{}, err
	}

	for _, row := range resp.Datas.All.Rows {
		if row.XN+"-"+row.XQ != semesterID {
			continue
		}
		datePart, _, _ := strings.Cut(row.XQKSRQ, " ")
		start, err := time.ParseInLocation("2006-01-02", datePart, u.tz)
		if err != nil {
			return time.Time{}, fmt.Errorf("parsing semester start %q: %w", row.XQKSRQ, err)
		}
		return mondayOf(start), nil
	}
	return time.Time{}, &adapter.ScrapeError{Page: "all semesters", Missing: "semester " + semesterID}
}

func (u *Undergrad) rowToCourse(row undergradCourseRow, semesterStart time.Time) (schedule.Course, error) {
	if row.KCM == "" || row.SKZC == "" {
		return schedule.Course{}, fmt.Errorf("%w: course row missing KCM or SKZC", adapter.ErrMalformedRow)
	}
	startPeriod, err := strconv.Atoi(row.KSJC)
	if err != nil {
		return schedule.Course{}, fmt.Errorf("%w: KSJC %q for %q", adapter.ErrMalformedRow, row.KSJC, row.KCM)
	}
	endPeriod, err := strconv.Atoi(row.JSJC)
	if err != nil {
		return schedule.Course{}, fmt.Errorf("%w: JSJC %q for %q", adapter.ErrMalformedRow, row.JSJC, row.KCM)
	}
	weekday, err := strconv.Atoi(row.SKXQ)
	if err != nil {
		return schedule.Course{}, fmt.Errorf("%w: SKXQ %q for %q", adapter.ErrMalformedRow, row.SKXQ, row.KCM)
	}

	var occurrences []schedule.Occurrence
	// KSJC or JSJC of 0 marks a free-time course: it stays on the
	// calendar feed's course list but has no timed events.
	if startPeriod != 0 && endPeriod != 0 {
		times, err := schedule.ExpandWeekBitmap(row.SKZC, weekday, startPeriod, endPeriod)
		if err != nil {
			return schedule.Course{}, fmt.Errorf("%w: %q: %v", adapter.ErrMalformedRow, row.KCM, err)
		}
		for _, ct := range times {
			start, end, err := ct.WindowOn(semesterStart, u.tz)
			if err != nil {
				return schedule.Course{}, fmt.Errorf("course %q: %w", row.KCM, err)
			}
			occurrences = append(occurrences, schedule.Occurrence{Start: start, End: end})
		}
	}

	teacher := strings.TrimSpace(row.JSHS)
	if teacher == "" {
		teacher = "未知"
	}
	return schedule.Course{
		Name:     row.KCM,
		Location: strings.TrimSpace(row.JASMC),
		Geo:      lookupGeo(row.JASMC),
		Campus:   row.Campus,
		Notes: []string{
			"班级：" + row.JXBMC,
			"教师：" + teacher,
			"上课班级：" + row.SKBJ,
		},
		Times: occurrences,
	}, nil
}

// finalExams fetches exam seatings and exposes each as a one-off course.
func (u *Undergrad) finalExams(ctx context.Context, client *http.Client, semesterID string) ([]schedule.Course, error) {
	var resp struct {
		Datas struct {
			Exams rowsEnvelope[undergradExamRow] `json:"cxxsksap"`
		} `json:"datas"`
	}
	form := url.Values{}
	form.Set("requestParamStr", fmt.Sprintf(`{"XNXQDM":%q,"*order":"-KSRQ,-KSSJMS"}`, semesterID))
	if err := postForm(ctx, client, u.api.finalExamsURL, form, &resp); err != nil {
		return nil, err
	}

	courses := make([]schedule.Course, 0, len(resp.Datas.Exams.Rows))
	for _, row := range resp.Datas.Exams.Rows {
		courses = append(courses, u.examToCourse(row))
	}
	return courses, nil
}

func (u *Undergrad) examToCourse(row undergradExamRow) schedule.Course {
	var occurrences []schedule.Occurrence
	date, dateErr := time.ParseInLocation("2006-01-02", row.KSRQ, u.tz)
	start, startErr := time.Parse("15:04", row.KSKSSJ)
	end, endErr := time.Parse("15:04", row.KSJSSJ)
	// An exam without a scheduled seat yet still shows up in the feed,
	// just without a timed event.
	if dateErr == nil && startErr == nil && endErr == nil {
		occurrences = []schedule.Occurrence{{
			Start: date.Add(time.Duration(start.Hour())*time.Hour + time.Duration(start.Minute())*time.Minute),
			End:   date.Add(time.Duration(end.Hour())*time.Hour + time.Duration(end.Minute())*time.Minute),
		}}
	}

	return schedule.Course{
		Name:     row.KCM + "期末考试",
		Location: strings.TrimSpace(row.JASMC),
		Geo:      lookupGeo(row.JASMC),
		Notes:    []string{"教师：" + row.ZJJSXM},
		Times:    occurrences,
	}
}
