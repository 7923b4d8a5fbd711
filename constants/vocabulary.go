package constants

// NoiseWords are leaderboard labels that OCR glues onto nicknames (rank, totals, login,
// fan-count, sub-role, leader and member labels). Order matters: removal is sequential
// substring replacement.
var NoiseWords = []string{
	"총", "최종", "획득", "로그인", "팬", "수", "팬수",
	"RANK", "Rank", "pt", "PT", "서브", "리더", "멤버",
}
