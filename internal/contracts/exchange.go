package contracts

import (
	"fmt"
	"strings"
)

// Exchange codes. Short codes are the id suffix (000001.SH); MIC-style codes
// are what the classification documents carry.
const (
	ExchangeSH  = "SH"
	ExchangeSZ  = "SZ"
	MICShanghai = "XSHG"
	MICShenzhen = "XSHE"
)

var shortToMIC = map[string]string{
	ExchangeSH: MICShanghai,
	ExchangeSZ: MICShenzhen,
}

var micToShort = map[string]string{
	MICShanghai: ExchangeSH,
	MICShenzhen: ExchangeSZ,
}

// shanghaiTickerFloor: numeric tickers from 600000 up trade in Shanghai.
const shanghaiTickerFloor = 600000

// ExchangeMIC maps SH/SZ to XSHG/XSHE. Codes already in MIC form pass through;
// "" means no filter.
func ExchangeMIC(exch string) (string, error) {
	exch = strings.ToUpper(strings.TrimSpace(exch))
	if exch == "" {
		return "", nil
	}
	if mic, ok := shortToMIC[exch]; ok {
		return mic, nil
	}
	if exch == MICShanghai || exch == MICShenzhen {
		return exch, nil
	}
	return "", Configuration("exchange", "unknown exchange %q", exch)
}

// TickerExchange returns the exchange of a numeric A-share ticker.
func TickerExchange(ticker int) string {
	if ticker >= shanghaiTickerFloor {
		return ExchangeSH
	}
	return ExchangeSZ
}

// WindCode converts a MIC-suffixed id (600000.XSHG) to the short form
// (600000.SH). Ids already in short form pass through.
func WindCode(secID string) string {
	code, exch := SplitSecurityCode(secID)
	if short, ok := micToShort[exch]; ok {
		return code + "." + short
	}
	return secID
}

// SecurityCode builds the suffixed id for a numeric ticker (1, "SH" -> "000001.SH").
func SecurityCode(ticker int, exch string) string {
	return fmt.Sprintf("%06d.%s", ticker, strings.ToUpper(exch))
}

// SplitSecurityCode splits "000001.SH" into ("000001", "SH").
func SplitSecurityCode(id string) (string, string) {
	i := strings.LastIndexByte(id, '.')
	if i < 0 {
		return id, ""
	}
	return id[:i], strings.ToUpper(id[i+1:])
}
