package manifest

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

const sampleRepos = `repositories:
  ros2/demos:
    type: git
    url: https://github.com/ros2/demos.git
    version: rolling
  ament/ament_lint:
    type: git
    url: https://github.com/ament/ament_lint.git
`

func TestParse(t *testing.T) {
	m, err := Parse([]byte(sampleRepos))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	want := &Manifest{Repositories: map[string]Repo{
		"ros2/demos":       {Type: "git", URL: "https://github.com/ros2/demos.git", Version: "rolling"},
		"ament/ament_lint": {Type: "git", URL: "https://github.com/ament/ament_lint.git"},
	}}
	if diff := cmp.Diff(want, m); diff != "" {
		t.Errorf("manifest mismatch (-want +got):\n%s", diff)
	}
}

func TestParse_MissingRepositoriesKey(t *testing.T) {
	if _, err := Parse([]byte("foo: bar\n")); err == nil {
		t.Fatal("expected error for document without repositories key")
	}
}

func TestParse_Invalid(t *testing.T) {
	if _, err := Parse([]byte("repositories: [not: a: mapping\n")); err == nil {
		t.Fatal("expected yaml error")
	}
}

func TestEncode_RoundTrip(t *testing.T) {
	m := ForTarget("ros2/rclcpp", "https://github.com/ros2/rclcpp.git", "pr-123")
	data, err := m.Encode()
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	back, err := Parse(data)
	if err != nil {
		t.Fatalf("Parse round-trip: %v", err)
	}
	if diff := cmp.Diff(m, back); diff != "" {
		t.Errorf("round-trip mismatch (-want +got):\n%s", diff)
	}
}

func TestForTarget(t *testing.T) {
	m := ForTarget("rclcpp", "https://github.com/fork/rclcpp.git", "abc123")
	if len(m.Repositories) != 1 {
		t.Fatalf("want single entry, got %d", len(m.Repositories))
	}
	r := m.Repositories["rclcpp"]
	if r.Type != "git" || r.URL != "https://github.com/fork/rclcpp.git" || r.Version != "abc123" {
		t.Errorf("unexpected entry: %+v", r)
	}
}

func TestNames_Sorted(t *testing.T) {
	m, err := Parse([]byte(sampleRepos))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	want := []string{"ament/ament_lint", "ros2/demos"}
	if diff := cmp.Diff(want, m.Names()); diff != "" {
		t.Errorf("names mismatch (-want +got):\n%s", diff)
	}
}
