package scores

// allianzRatingScores maps Allianz medium-term ratings onto a 0-100 scale.
var allianzRatingScores = map[string]float64{
	"AA":  100,
	"A":   85,
	"BB1": 70,
	"BB":  65,
	"B":   50,
	"C":   30,
	"D":   10,
}

// agencyRatingScores maps long-term sovereign ratings onto a 0-100 scale.
// Moody's and the S&P/Fitch scales share one table; where the symbols collide
// ("C") the meaning is the same grade.
var agencyRatingScores = map[string]float64{
	"Aaa": 100, "Aa1": 95, "Aa2": 90, "Aa3": 85,
	"A1": 80, "A2": 75, "A3": 70,
	"Baa1": 65, "Baa2": 60, "Baa3": 55,
	"Ba1": 50, "Ba2": 45, "Ba3": 40,
	"B1": 35, "B2": 30, "B3": 25,
	"Caa1": 20, "Caa2": 15, "Caa3": 10,
	"Ca": 5,

	"AAA": 100, "AA+": 95, "AA": 90, "AA-": 85,
	"A+": 80, "A": 75, "A-": 70,
	"BBB+": 65, "BBB": 60, "BBB-": 55,
	"BB+": 50, "BB": 45, "BB-": 40,
	"B+": 35, "B": 30, "B-": 25,
	"CCC+": 20, "CCC": 15, "CCC-": 10,
	"CC": 5, "C": 1, "D": 0,
}

// Blend weights per source. Renormalized over whichever sources have a score
// for a given country.
const (
	allianzWeight        = 0.35
	countryEconomyWeight = 0.35
	worldBankWeight      = 0.20
)

// worldBankIndicators are the six governance dimensions that enter the
// World Bank score.
var worldBankIndicators = map[string]bool{
	"cc": true, "ge": true, "pv": true, "rl": true, "rq": true, "va": true,
}

// analysisYears is the lookback window for the time-weighted scores; the most
// recent year weighs 10, the oldest 1.
const analysisYears = 10

func yearWeight(latestYear, year int) float64 {
	delta := latestYear - year
	if delta < 0 || delta >= analysisYears {
		return 0
	}
	return float64(analysisYears - delta)
}
