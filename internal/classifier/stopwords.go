package classifier

// spanishStopwords is the Spanish stop-word list used by the token-based
// strategies. Lookups are on lowercased tokens.
var spanishStopwords = toSet([]string{
	"a", "al", "algo", "algunas", "algunos", "ante", "antes", "como", "con", "contra",
	"cual", "cuando", "de", "del", "desde", "donde", "durante", "e", "el", "ella",
	"ellas", "ellos", "en", "entre", "era", "erais", "eran", "eras", "eres", "es",
	"esa", "esas", "ese", "eso", "esos", "esta", "estaba", "estaban", "estado", "estamos",
	"estar", "estas", "este", "esto", "estos", "estoy", "está", "están", "fue", "fueron",
	"fui", "ha", "habéis", "había", "habían", "han", "has", "hasta", "hay", "he",
	"hemos", "la", "las", "le", "les", "lo", "los", "me", "mi", "mis",
	"mucho", "muchos", "muy", "más", "mí", "nada", "ni", "no", "nos", "nosotros",
	"nuestra", "nuestro", "o", "os", "otra", "otras", "otro", "otros", "para", "pero",
	"poco", "por", "porque", "que", "quien", "quienes", "qué", "se", "sea", "sean",
	"ser", "será", "si", "sido", "siendo", "sin", "sobre", "sois", "somos", "son",
	"soy", "su", "sus", "suya", "suyo", "sí", "también", "tanto", "te", "tenemos",
	"tener", "tengo", "ti", "tiene", "tienen", "todo", "todos", "tu", "tus", "tú",
	"un", "una", "uno", "unos", "vosotros", "y", "ya", "yo", "él", "éramos",
})

func toSet(words []string) map[string]struct{} {
	set := make(map[string]struct{}, len(words))
	for _, w := range words {
		set[w] = struct{}{}
	}
	return set
}

func isStopword(tok string) bool {
	_, ok := spanishStopwords[tok]
	return ok
}

// contentTokens tokenizes text and drops stop-words.
func contentTokens(text string) []string {
	toks := Tokenize(text)
	out := toks[:0]
	for _, t := range toks {
		if !isStopword(t) {
			out = append(out, t)
		}
	}
	return out
}
