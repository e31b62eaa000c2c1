package delivery

import "testing"

func TestSummarizeParcelResults(t *testing.T) {
	results := []ParcelResult{
		{ParcelID: "p1", Success: true},
		{ParcelID: "p2", Success: false},
		{ParcelID: "p3", Success: true},
	}
	s := SummarizeParcelResults(results)
	if s.Total != 3 || s.Succeeded != 2 || s.Failed != 1 {
		t.Fatalf("summary = %+v, want {Total:3 Succeeded:2 Failed:1}", s)
	}
}

func TestSummarizeLabelResults(t *testing.T) {
	results := []LabelResult{
		{ParcelID: "p1", Success: true},
		{ParcelID: "p2", Success: true},
	}
	s := SummarizeLabelResults(results)
	if s.Total != 2 || s.Succeeded != 2 || s.Failed != 0 {
		t.Fatalf("summary = %+v, want {Total:2 Succeeded:2 Failed:0}", s)
	}
}

func TestSummarizeResultsEmpty(t *testing.T) {
	if s := SummarizeParcelResults(nil); s.Total != 0 {
		t.Fatalf("SummarizeParcelResults(nil) = %+v, want zero value", s)
	}
	if s := SummarizeLabelResults(nil); s.Total != 0 {
		t.Fatalf("SummarizeLabelResults(nil) = %+v, want zero value", s)
	}
}
