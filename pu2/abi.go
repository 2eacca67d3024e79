// Package pu2 binds the consumed surface of the PU2 wagering contract:
// typed views over CallContract and calldata builders for every
// state-changing method. The contract owns all game state; nothing here
// caches or re-derives it.
package pu2

import (
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
)

const contractJSON = `[
{"type":"function","name":"createGame","stateMutability":"payable","inputs":[{"name":"buyIn","type":"uint256"},{"name":"token","type":"address"},{"name":"maxPlayers","type":"uint256"}],"outputs":[]},
{"type":"function","name":"getGameInfo","stateMutability":"view","inputs":[{"name":"code","type":"string"}],"outputs":[{"name":"host","type":"address"},{"name":"token","type":"address"},{"name":"buyIn","type":"uint256"},{"name":"maxPlayers","type":"uint256"},{"name":"playerCount","type":"uint256"},{"name":"locked","type":"bool"},{"name":"prizeSplits","type":"uint256[]"}]},
{"type":"function","name":"getPlayers","stateMutability":"view","inputs":[{"name":"code","type":"string"}],"outputs":[{"name":"players","type":"address[]"}]},
{"type":"function","name":"getInGameJudges","stateMutability":"view","inputs":[{"name":"code","type":"string"}],"outputs":[{"name":"judges","type":"address[]"}]},
{"type":"function","name":"isWinnerConfirmed","stateMutability":"view","inputs":[{"name":"code","type":"string"},{"name":"player","type":"address"}],"outputs":[{"name":"confirmed","type":"bool"}]},
{"type":"function","name":"joinGame","stateMutability":"payable","inputs":[{"name":"code","type":"string"}],"outputs":[]},
{"type":"function","name":"lockGame","stateMutability":"nonpayable","inputs":[{"name":"code","type":"string"}],"outputs":[]},
{"type":"function","name":"reportWinners","stateMutability":"nonpayable","inputs":[{"name":"code","type":"string"},{"name":"winners","type":"address[]"}],"outputs":[]},
{"type":"function","name":"claimWinnings","stateMutability":"nonpayable","inputs":[{"name":"code","type":"string"}],"outputs":[]},
{"type":"function","name":"setPrizeSplits","stateMutability":"nonpayable","inputs":[{"name":"code","type":"string"},{"name":"splits","type":"uint256[]"}],"outputs":[]},
{"type":"function","name":"addJudge","stateMutability":"nonpayable","inputs":[{"name":"code","type":"string"},{"name":"judge","type":"address"}],"outputs":[]},
{"type":"function","name":"setJudges","stateMutability":"nonpayable","inputs":[{"name":"code","type":"string"},{"name":"judges","type":"address[]"}],"outputs":[]},
{"type":"event","name":"GameCreated","anonymous":false,"inputs":[{"name":"host","type":"address","indexed":true},{"name":"code","type":"string","indexed":false}]},
{"type":"event","name":"WinningsClaimed","anonymous":false,"inputs":[{"name":"winner","type":"address","indexed":true},{"name":"code","type":"string","indexed":false},{"name":"amount","type":"uint256","indexed":false}]}
]`

var (
	contractABI = mustParse(contractJSON)

	// GameCreatedID and WinningsClaimedID are the event signature hashes,
	// computed from the ABI so they cannot drift from the declared
	// signatures.
	GameCreatedID     = contractABI.Events["GameCreated"].ID
	WinningsClaimedID = contractABI.Events["WinningsClaimed"].ID
)

func mustParse(s string) abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(s))
	if err != nil {
		panic(err)
	}
	return parsed
}
