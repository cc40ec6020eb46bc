package nju

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"campuscal/adapter"
)

const (
	undergradSemestersJSON = `{"code":"0","datas":{"dqxnxq":{"rows":[{"DM":"2024-2025-1"}]}}}`
	undergradAllSemJSON    = `{"code":"0","datas":{"cxjcs":{"rows":[
		{"XN":"2023-2024","XQ":"2","XQKSRQ":"2024-02-26 00:00:00"},
		{"XN":"2024-2025","XQ":"1","XQKSRQ":"2024-09-02 00:00:00"}]}}}`
	undergradExamsJSON = `{"code":"0","datas":{"cxxsksap":{"rows":[
		{"KCM":"操作系统","JASMC":"仙Ⅱ-105","KSRQ":"2025-01-07","KSKSSJ":"14:00","KSJSSJ":"16:00","XH":"211250000","ZJJSXM":"王老师"}]}}}`
)

func undergradCoursesJSON(rows string) string {
	return fmt.Sprintf(`{"code":"0","datas":{"cxxszhxqkb":{"pageSize":9999,"pageNumber":1,"totalSize":1,"rows":[%s]}}}`, rows)
}

func testUndergrad(t *testing.T, coursesBody string) (*Undergrad, *http.Client) {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/dqxnxq.do", func(w http.ResponseWriter, r *http.Request) { fmt.Fprint(w, undergradSemestersJSON) })
	mux.HandleFunc("/cxjcs.do", func(w http.ResponseWriter, r *http.Request) { fmt.Fprint(w, undergradAllSemJSON) })
	mux.HandleFunc("/cxxszhxqkb.do", func(w http.ResponseWriter, r *http.Request) {
		if r.FormValue("XNXQDM") != "2024-2025-1" {
			t.Errorf("courses XNXQDM = %q", r.FormValue("XNXQDM"))
		}
		fmt.Fprint(w, coursesBody)
	})
	mux.HandleFunc("/cxxsksap.do", func(w http.ResponseWriter, r *http.Request) {
		if r.FormValue("requestParamStr") == "" {
			t.Error("final exams request missing requestParamStr")
		}
		fmt.Fprint(w, undergradExamsJSON)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	u := &Undergrad{
		api: undergradAPI{
			currSemesterURL: srv.URL + "/dqxnxq.do",
			allSemestersURL: srv.URL + "/cxjcs.do",
			coursesURL:      srv.URL + "/cxxszhxqkb.do",
			finalExamsURL:   srv.URL + "/cxxsksap.do",
		},
		tz: cstZone(),
	}
	return u, srv.Client()
}

func TestUndergradCourses(t *testing.T) {
	row := `{"KCM":"操作系统","JASMC":"仙Ⅰ-108","JXBMC":"操作系统1班","JSHS":"1507810 王可 ",
		"SKBJ":"2022计算机科学与技术","SKZC":"0100000000000000000000","KSJC":"3","JSJC":"4","SKXQ":"2",
		"XXXQDM_DISPLAY":"仙林校区"}`
	u, client := testUndergrad(t, undergradCoursesJSON(row))

	courses, err := u.Courses(context.Background(), client)
	if err != nil {
		t.Fatalf("Courses: %v", err)
	}
	if len(courses) != 2 {
		t.Fatalf("got %d courses, want course + exam", len(courses))
	}

	course := courses[0]
	if course.Name != "操作系统" || course.Campus != "仙林校区" {
		t.Errorf("course = %+v", course)
	}
	if course.Geo == nil {
		t.Error("expected geo for 仙Ⅰ building")
	}
	if len(course.Times) != 1 {
		t.Fatalf("got %d occurrences, want 1", len(course.Times))
	}
	// Week 2 Tuesday, periods 3-4.
	wantStart := time.Date(2024, 9, 10, 10, 10, 0, 0, u.tz)
	wantEnd := time.Date(2024, 9, 10, 12, 0, 0, 0, u.tz)
	if !course.Times[0].Start.Equal(wantStart) || !course.Times[0].End.Equal(wantEnd) {
		t.Errorf("occurrence = %v .. %v, want %v .. %v", course.Times[0].Start, course.Times[0].End, wantStart, wantEnd)
	}

	exam := courses[1]
	if exam.Name != "操作系统期末考试" {
		t.Errorf("exam name = %q", exam.Name)
	}
	if len(exam.Times) != 1 {
		t.Fatalf("got %d exam occurrences, want 1", len(exam.Times))
	}
	wantExam := time.Date(2025, 1, 7, 14, 0, 0, 0, u.tz)
	if !exam.Times[0].Start.Equal(wantExam) {
		t.Errorf("exam start = %v, want %v", exam.Times[0].Start, wantExam)
	}
}

func TestUndergradFreeTimeCourse(t *testing.T) {
	row := `{"KCM":"自由阅读","JASMC":"","JXBMC":"阅读1班","JSHS":"","SKBJ":"",
		"SKZC":"1111111111111111","KSJC":"0","JSJC":"0","SKXQ":"1","XXXQDM_DISPLAY":"仙林校区"}`
	u, client := testUndergrad(t, undergradCoursesJSON(row))

	courses, err := u.Courses(context.Background(), client)
	if err != nil {
		t.Fatalf("Courses: %v", err)
	}
	if len(courses[0].Times) != 0 {
		t.Errorf("free-time course has %d occurrences, want 0", len(courses[0].Times))
	}
	// Unknown teacher gets a placeholder so the note is never empty.
	found := false
	for _, note := range courses[0].Notes {
		if note == "教师：未知" {
			found = true
		}
	}
	if !found {
		t.Errorf("notes = %v", courses[0].Notes)
	}
}

func TestUndergradMalformedRow(t *testing.T) {
	row := `{"KCM":"损坏的课","JASMC":"","JXBMC":"","JSHS":"","SKBJ":"",
		"SKZC":"10","KSJC":"three","JSJC":"4","SKXQ":"2","XXXQDM_DISPLAY":""}`
	u, client := testUndergrad(t, undergradCoursesJSON(row))

	_, err := u.Courses(context.Background(), client)
	if !errors.Is(err, adapter.ErrMalformedRow) {
		t.Fatalf("want ErrMalformedRow, got %v", err)
	}
}
