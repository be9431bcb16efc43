package service

import (
	"reflect"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"github.com/cleberrangel/brickrate-api/internal/model"
)

// Os números são mapeados por posição: o "2" de "2 bhk" vira o comprimento
func TestInterpretPositionalNumbers(t *testing.T) {
	intent := NewInterpreter().Interpret("estimate 2 bhk in bhopal 10 by 8", model.EstimateRequest{})

	if intent.Kind != model.IntentEstimate {
		t.Fatalf("Kind = %s, want estimate", intent.Kind)
	}
	if !reflect.DeepEqual(intent.Numbers, []float64{2, 10, 8}) {
		t.Errorf("Numbers = %v, want [2 10 8]", intent.Numbers)
	}

	req := intent.Request
	if req.LengthM != 2 || req.WidthM != 10 || req.Floors != 8 {
		t.Errorf("length/width/floors = %v/%v/%d, want 2/10/8", req.LengthM, req.WidthM, req.Floors)
	}
	if req.CityName != "bhopal" {
		t.Errorf("CityName = %q, want bhopal", req.CityName)
	}
	if req.HouseType != model.HouseType2BHK {
		t.Errorf("HouseType = %q, want 2bhk", req.HouseType)
	}
}

func TestInterpretIntentPrecedence(t *testing.T) {
	tests := []struct {
		text string
		want model.IntentKind
	}{
		{"Save this estimate", model.IntentSave},
		{"download the pdf", model.IntentDownload},
		{"calculate 12 by 9", model.IntentEstimate},
		{"estimate and download", model.IntentDownload},
		{"save the pdf", model.IntentSave},
		{"hello there", model.IntentUnrecognized},
		{"", model.IntentUnrecognized},
	}

	in := NewInterpreter()
	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			intent := in.Interpret(tt.text, model.EstimateRequest{})
			if intent.Kind != tt.want {
				t.Errorf("Interpret(%q) = %s, want %s", tt.text, intent.Kind, tt.want)
			}
			if intent.Kind != model.IntentEstimate && intent.Request != nil {
				t.Error("only estimate intents carry a request")
			}
		})
	}
}

func TestInterpretHouseTypeFirstRuleWins(t *testing.T) {
	tests := []struct {
		text string
		want model.HouseType
	}{
		{"estimate 1 bhk", model.HouseType1BHK},
		{"estimate one bhk villa", model.HouseType1BHK},
		{"estimate two bhk large", model.HouseType2BHK},
		{"estimate kothi", model.HouseTypeKothi},
		{"estimate a large house", model.HouseTypeKothi},
	}

	in := NewInterpreter()
	for _, tt := range tests {
		intent := in.Interpret(tt.text, model.EstimateRequest{HouseType: "previous"})
		if intent.Request.HouseType != tt.want {
			t.Errorf("Interpret(%q).HouseType = %q, want %q", tt.text, intent.Request.HouseType, tt.want)
		}
	}
}

func TestInterpretFallsBackToPrevious(t *testing.T) {
	previous := model.EstimateRequest{
		LengthM: 20, WidthM: 15, Floors: 3, CityName: "Pune", HouseType: model.HouseTypeKothi,
	}

	intent := NewInterpreter().Interpret("estimate again", previous)
	req := intent.Request

	if req.LengthM != 20 || req.WidthM != 15 || req.CityName != "Pune" || req.HouseType != model.HouseTypeKothi {
		t.Errorf("unextracted fields should come from previous: %+v", req)
	}
	if req.Floors != 1 {
		t.Errorf("Floors = %d, want 1 when no third number", req.Floors)
	}
	if intent.Slots.Length != nil || intent.Slots.City != nil {
		t.Error("slots should only hold extracted values")
	}
}

func TestInterpretCityIsFirstTokenAfterIn(t *testing.T) {
	intent := NewInterpreter().Interpret("Estimate in New Delhi 10 by 10", model.EstimateRequest{})
	if intent.Request.CityName != "new" {
		t.Errorf("CityName = %q, want %q", intent.Request.CityName, "new")
	}
}

func TestInterpretFractionalFloors(t *testing.T) {
	intent := NewInterpreter().Interpret("estimate 10 by 8 with 2.7 floors", model.EstimateRequest{})
	if intent.Request.Floors != 2 {
		t.Errorf("Floors = %d, want 2", intent.Request.Floors)
	}
}

func TestExtractNumbers(t *testing.T) {
	got := ExtractNumbers("plot 12.5 by 8, 3 floors and 007")
	want := []float64{12.5, 8, 3, 7}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("ExtractNumbers = %v, want %v", got, want)
	}
	if len(ExtractNumbers("no digits")) != 0 {
		t.Error("expected no numbers")
	}
}

// Property: texto sem palavras-chave nunca é reconhecido
func TestPropertyUnrecognizedWithoutKeywords(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	in := NewInterpreter()

	properties.Property("numeric text is unrecognized", prop.ForAll(
		func(a, b int) bool {
			intent := in.Interpret(string(rune('0'+a%10))+" x "+string(rune('0'+b%10)), model.EstimateRequest{})
			return intent.Kind == model.IntentUnrecognized && intent.Request == nil
		},
		gen.IntRange(0, 9),
		gen.IntRange(0, 9),
	))

	properties.Property("estimate keyword always yields a request", prop.ForAll(
		func(l, w int) bool {
			text := "estimate " + itoa(l) + " by " + itoa(w)
			intent := in.Interpret(text, model.EstimateRequest{})
			return intent.Kind == model.IntentEstimate &&
				intent.Request.LengthM == float64(l) &&
				intent.Request.WidthM == float64(w) &&
				intent.Request.Floors == 1
		},
		gen.IntRange(1, 999),
		gen.IntRange(1, 999),
	))

	properties.TestingRun(t)
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	var b []byte
	for n > 0 {
		b = append([]byte{byte('0' + n%10)}, b...)
		n /= 10
	}
	return string(b)
}
