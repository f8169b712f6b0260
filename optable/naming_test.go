package optable

import "testing"

func TestGoName(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"PropFrame.GetNameList", "PropFrameGetNameList"},
		{"InitializeNewModel", "InitializeNewModel"},
		{"File.Save_As", "FileSaveAs"},
		{"results.setup.deselectAll", "ResultsSetupDeselectAll"},
		{"", ""},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got := GoName(tt.input)
			if got != tt.expected {
				t.Errorf("GoName(%q) = %q, want %q", tt.input, got, tt.expected)
			}
		})
	}
}

func TestNativeName(t *testing.T) {
	tests := []struct {
		iface    string
		method   string
		expected string
	}{
		{"PropFrame", "GetNameList", "PropFrame.GetNameList"},
		{"Results_Setup", "DeselectAll", "Results.Setup.DeselectAll"},
		{"Root", "InitializeNewModel", "InitializeNewModel"},
		{"", "Hide", "Hide"},
	}
	for _, tt := range tests {
		t.Run(tt.expected, func(t *testing.T) {
			got := NativeName(tt.iface, tt.method)
			if got != tt.expected {
				t.Errorf("NativeName(%q, %q) = %q, want %q", tt.iface, tt.method, got, tt.expected)
			}
		})
	}
}

func TestParamName(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"NumberNames", "numberNames"},
		{"MyName", "myName"},
		{"Type", "type_"},
		{"ID", "id"},
		{"UXArray", "uxArray"},
		{"x", "x"},
		{"Range", "range_"},
		{"", ""},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got := ParamName(tt.input)
			if got != tt.expected {
				t.Errorf("ParamName(%q) = %q, want %q", tt.input, got, tt.expected)
			}
		})
	}
}
