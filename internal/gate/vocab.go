package gate

// Family is one value of a detectable attribute and the phrases that
// evidence it. Signals are written in normalized form: lower case, words
// separated by single spaces, punctuation replaced by spaces.
type Family struct {
	Name    string
	Signals []string
}

// Vocabulary is an ordered set of families for one attribute.
type Vocabulary []Family

// SeriesVocab covers the model generations hunts usually target.
var SeriesVocab = Vocabulary{
	{Name: "LC70", Signals: []string{
		"lc70", "lc71", "lc76", "lc78", "lc79", "lc 70", "lc 79",
		"vdj76", "vdj78", "vdj79", "grj79", "grj76", "hzj79", "hzj78", "hzj76", "hzj75", "fzj79",
		"70 series", "76 series", "78 series", "79 series",
		"landcruiser 70", "landcruiser 76", "landcruiser 78", "landcruiser 79",
		"troop carrier", "troopy",
	}},
	{Name: "LC100", Signals: []string{
		"lc100", "lc105", "100 series", "105 series", "uzj100", "hdj100", "fzj105", "hzj105",
		"landcruiser 100",
	}},
	{Name: "LC200", Signals: []string{
		"lc200", "200 series", "vdj200", "urj202", "uzj200", "landcruiser 200",
	}},
	{Name: "LC300", Signals: []string{
		"lc300", "300 series", "fja300", "vja300", "gr sport", "f33a", "landcruiser 300",
	}},
	{Name: "PRADO150", Signals: []string{
		"prado 150", "150 series", "grj150", "gdj150", "kdj150", "trj150",
	}},
	{Name: "PRADO250", Signals: []string{
		"prado 250", "250 series", "gdj250",
	}},
	{Name: "HILUX_N70", Signals: []string{
		"n70", "kun26", "kun16", "ggn25", "tgn16",
	}},
	{Name: "HILUX_N80", Signals: []string{
		"n80", "gun126", "gun125", "gun136", "gun122", "gun123",
	}},
}

// EngineVocab covers engine families by code and common descriptions.
var EngineVocab = Vocabulary{
	{Name: "1VD", Signals: []string{
		"1vd", "1vd ftv", "v8 diesel", "v8 turbo diesel", "4 5l v8", "4 5 litre v8", "4 5l turbo diesel",
	}},
	{Name: "1HZ", Signals: []string{
		"1hz", "4 2l diesel", "4 2 litre diesel", "4 2l 6 cylinder", "non turbo diesel",
	}},
	{Name: "F33A", Signals: []string{
		"f33a", "f33a ftv", "3 3l v6", "3 3 litre v6", "v6 turbo diesel", "v6 diesel",
	}},
	{Name: "1GD", Signals: []string{
		"1gd", "1gd ftv", "2 8l", "2 8 litre", "2 8l turbo diesel",
	}},
	{Name: "1GR", Signals: []string{
		"1gr", "1gr fe", "4 0l v6", "4 0 litre v6", "v6 petrol",
	}},
}

// CabVocab covers cab styles.
var CabVocab = Vocabulary{
	{Name: "single", Signals: []string{"single cab", "single c c", "single cab chassis"}},
	{Name: "extra", Signals: []string{"extra cab", "space cab", "king cab", "super cab", "freestyle cab", "x cab"}},
	{Name: "dual", Signals: []string{"dual cab", "double cab", "crew cab", "dual cab chassis", "double cab chassis"}},
}

// BodyVocab covers body styles.
var BodyVocab = Vocabulary{
	{Name: "cab_chassis", Signals: []string{"cab chassis", "cab chas", "tray back", "tray", "alloy tray", "steel tray"}},
	{Name: "wagon", Signals: []string{"wagon", "station wagon", "7 seater", "8 seater"}},
	{Name: "ute", Signals: []string{"ute", "pickup", "pick up", "tub", "well body", "wellside"}},
	{Name: "troop_carrier", Signals: []string{"troop carrier", "troopy", "troopie"}},
}
