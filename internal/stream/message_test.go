package stream

import (
	"testing"
)

func TestParseGradingMessage(t *testing.T) {
	tests := []struct {
		name    string
		fields  map[string]string
		want    *GradingMessage
		wantErr bool
	}{
		{
			name:   "minimal message",
			fields: map[string]string{"submissionId": "sub-1"},
			want:   &GradingMessage{SubmissionID: "sub-1"},
		},
		{
			name:   "force true",
			fields: map[string]string{"submissionId": "sub-1", "force": "true"},
			want:   &GradingMessage{SubmissionID: "sub-1", Force: true},
		},
		{
			name:   "force numeric",
			fields: map[string]string{"submissionId": "sub-1", "force": "1"},
			want:   &GradingMessage{SubmissionID: "sub-1", Force: true},
		},
		{
			name:   "unknown force value ignored",
			fields: map[string]string{"submissionId": "sub-1", "force": "yes"},
			want:   &GradingMessage{SubmissionID: "sub-1"},
		},
		{
			name:    "missing submissionId",
			fields:  map[string]string{"force": "true"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseGradingMessage(&StreamMessage{ID: "1-0", Fields: tt.fields})
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseGradingMessage() error: %v", err)
			}
			if got.SubmissionID != tt.want.SubmissionID || got.Force != tt.want.Force {
				t.Errorf("got %+v, want %+v", got, tt.want)
			}
		})
	}
}
