package service

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/cleberrangel/brickrate-api/internal/model"
)

// HelpPrompt é a sugestão devolvida quando o comando não é reconhecido
const HelpPrompt = `Voice command not recognized. Try: "Estimate 2 BHK in Bhopal 10 by 8"`

var numberPattern = regexp.MustCompile(`\d+(?:\.\d+)?`)

// citySeparator separa o comando do nome da cidade ("... in bhopal ...")
const citySeparator = " in "

// intentRule associa um predicado sobre o texto a um tipo de intenção.
// As regras são avaliadas na ordem declarada; a primeira que casa vence.
type intentRule struct {
	match func(text string) bool
	kind  model.IntentKind
}

var intentRules = []intentRule{
	{match: containsOneOf("save"), kind: model.IntentSave},
	{match: containsOneOf("download", "pdf"), kind: model.IntentDownload},
	{match: containsOneOf("estimate", "calculate"), kind: model.IntentEstimate},
}

// houseTypeRule segue a mesma convenção: primeira regra que casa vence,
// mesmo que uma regra posterior também case no mesmo texto
type houseTypeRule struct {
	match     func(text string) bool
	houseType model.HouseType
}

var houseTypeRules = []houseTypeRule{
	{match: containsOneOf("1 bhk", "one bhk"), houseType: model.HouseType1BHK},
	{match: containsOneOf("2 bhk", "two bhk", "2bhk"), houseType: model.HouseType2BHK},
	{match: containsOneOf("kothi", "villa", "large"), houseType: model.HouseTypeKothi},
}

// Interpreter mapeia comandos em texto livre para intenções
type Interpreter struct{}

// NewInterpreter cria um novo interpretador
func NewInterpreter() *Interpreter {
	return &Interpreter{}
}

// Interpret classifica o texto e, para estimativas, monta o request.
// Campos não extraídos vêm de previous (o estado atual do formulário).
func (i *Interpreter) Interpret(text string, previous model.EstimateRequest) model.Intent {
	lower := strings.ToLower(text)
	numbers := ExtractNumbers(lower)

	intent := model.Intent{
		Kind:    model.IntentUnrecognized,
		RawText: text,
		Numbers: numbers,
	}

	for _, rule := range intentRules {
		if rule.match(lower) {
			intent.Kind = rule.kind
			break
		}
	}

	if intent.Kind != model.IntentEstimate {
		return intent
	}

	slots := extractSlots(lower, numbers)
	req := previous
	if slots.Length != nil {
		req.LengthM = *slots.Length
	}
	if slots.Width != nil {
		req.WidthM = *slots.Width
	}
	// Sem terceiro número o andar volta para 1, não para o valor anterior
	req.Floors = 1
	if slots.Floors != nil {
		req.Floors = *slots.Floors
	}
	if slots.HouseType != nil {
		req.HouseType = *slots.HouseType
	}
	if slots.City != nil {
		req.CityName = *slots.City
	}

	intent.Slots = slots
	intent.Request = &req
	return intent
}

// ExtractNumbers retorna todos os números (inteiros ou decimais) na ordem em que aparecem
func ExtractNumbers(text string) []float64 {
	matches := numberPattern.FindAllString(text, -1)
	numbers := make([]float64, 0, len(matches))
	for _, m := range matches {
		v, err := strconv.ParseFloat(m, 64)
		if err != nil {
			continue
		}
		numbers = append(numbers, v)
	}
	return numbers
}

// extractSlots aplica o mapeamento posicional: 1º número = comprimento,
// 2º = largura, 3º = andares, independente do papel na frase
func extractSlots(text string, numbers []float64) *model.IntentSlots {
	slots := &model.IntentSlots{}

	if len(numbers) > 0 {
		v := numbers[0]
		slots.Length = &v
	}
	if len(numbers) > 1 {
		v := numbers[1]
		slots.Width = &v
	}
	if len(numbers) > 2 {
		floors := clampFloors(numbers[2])
		slots.Floors = &floors
	}

	for _, rule := range houseTypeRules {
		if rule.match(text) {
			h := rule.houseType
			slots.HouseType = &h
			break
		}
	}

	if parts := strings.Split(text, citySeparator); len(parts) > 1 {
		city := strings.Split(parts[1], " ")[0]
		slots.City = &city
	}

	return slots
}

func containsOneOf(keywords ...string) func(string) bool {
	return func(text string) bool {
		return containsAny(text, keywords)
	}
}
