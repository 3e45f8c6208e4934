package service

import (
	"github.com/shopspring/decimal"

	"github.com/sedna-dashboard/internal/types"
)

func mockAsset(id, symbol, name, image, price, change string, spark ...float64) types.Asset {
	return types.Asset{
		ID:                       id,
		Symbol:                   symbol,
		Name:                     name,
		Image:                    image,
		CurrentPrice:             decimal.RequireFromString(price),
		PriceChangePercentage24h: decimal.RequireFromString(change),
		Sparkline7d:              &types.Sparkline{Price: spark},
	}
}

// MockAssets is the local market list served when the provider is unreachable
func MockAssets() []types.Asset {
	return []types.Asset{
		mockAsset("bitcoin", "btc", "Bitcoin", "https://assets.coingecko.com/coins/images/1/large/bitcoin.png",
			"64230.50", "2.4", 62100, 62850, 63420, 62980, 63710, 64050, 64230.5),
		mockAsset("ethereum", "eth", "Ethereum", "https://assets.coingecko.com/coins/images/279/large/ethereum.png",
			"3450.12", "-1.2", 3520, 3498, 3471, 3502, 3466, 3459, 3450.12),
		mockAsset("tether", "usdt", "Tether", "https://assets.coingecko.com/coins/images/325/large/Tether.png",
			"1.00", "0.01", 1, 1, 1, 1, 1, 1, 1),
		mockAsset("binancecoin", "bnb", "BNB", "https://assets.coingecko.com/coins/images/825/large/bnb-icon2_2x.png",
			"585.30", "0.8", 578, 581, 579, 583, 584, 582, 585.3),
		mockAsset("solana", "sol", "Solana", "https://assets.coingecko.com/coins/images/4128/large/solana.png",
			"145.60", "5.8", 132, 135, 138, 137, 141, 143, 145.6),
		mockAsset("ripple", "xrp", "XRP", "https://assets.coingecko.com/coins/images/44/large/xrp-symbol-white-128.png",
			"0.52", "-0.6", 0.53, 0.53, 0.52, 0.53, 0.52, 0.52, 0.52),
		mockAsset("cardano", "ada", "Cardano", "https://assets.coingecko.com/coins/images/975/large/cardano.png",
			"0.45", "0.5", 0.44, 0.44, 0.45, 0.44, 0.45, 0.45, 0.45),
		mockAsset("dogecoin", "doge", "Dogecoin", "https://assets.coingecko.com/coins/images/5/large/dogecoin.png",
			"0.12", "-3.1", 0.13, 0.128, 0.126, 0.125, 0.123, 0.121, 0.12),
		mockAsset("avalanche-2", "avax", "Avalanche", "https://assets.coingecko.com/coins/images/12559/large/Avalanche_Circle_RedWhite_Trans.png",
			"28.40", "1.9", 27.1, 27.5, 27.3, 27.9, 28.1, 28.2, 28.4),
		mockAsset("polkadot", "dot", "Polkadot", "https://assets.coingecko.com/coins/images/12171/large/polkadot.png",
			"6.12", "-0.4", 6.2, 6.18, 6.15, 6.16, 6.14, 6.13, 6.12),
	}
}
