package session

import "strings"

type commandHandler func(s *Session, args string)

// commandTable maps every supported FTP verb to its handler. Populated
// once at package init; handlers for the different command
// families live in sibling files (auth.go, fs.go, data.go,
// site_bridge.go).
var commandTable = map[string]commandHandler{
	"USER": cmdUSER,
	"PASS": cmdPASS,
	"AUTH": cmdAUTH,
	"PBSZ": cmdPBSZ,
	"PROT": cmdPROT,
	"FEAT": cmdFEAT,
	"SYST": cmdSYST,
	"HELP": cmdHELP,
	"NOOP": cmdNOOP,
	"OPTS": cmdOPTS,
	"QUIT": cmdQUIT,
	"STAT": cmdSTAT,

	"TYPE": cmdTYPE,
	"MODE": cmdMODE,
	"STRU": cmdSTRU,

	"PWD":  cmdPWD,
	"CWD":  cmdCWD,
	"CDUP": cmdCDUP,
	"MKD":  cmdMKD,
	"RMD":  cmdRMD,
	"DELE": cmdDELE,
	"RNFR": cmdRNFR,
	"RNTO": cmdRNTO,

	"LIST": cmdLIST,
	"NLST": cmdNLST,
	"MLSD": cmdMLSD,
	"MLST": cmdMLST,
	"SIZE": cmdSIZE,
	"MDTM": cmdMDTM,

	"REST": cmdREST,
	"PASV": cmdPASV,
	"EPSV": cmdEPSV,
	"PORT": cmdPORT,
	"EPRT": cmdEPRT,
	"RETR": cmdRETR,
	"STOR": cmdSTOR,
	"APPE": cmdAPPE,
	"ABOR": cmdABOR,

	"SITE": cmdSITE,
}

func cmdNOOP(s *Session, _ string) {
	s.reply.Send(200, "NOOP ok.")
}

func cmdQUIT(s *Session, _ string) {
	s.reply.Send(221, "Goodbye.")
	s.state = StateClosing
	s.cancel()
}

func cmdSYST(s *Session, _ string) {
	s.reply.Send(215, "UNIX Type: L8")
}

func cmdFEAT(s *Session, _ string) {
	s.reply.SendMulti(211, []string{
		"Features:",
		"AUTH TLS",
		"PBSZ",
		"PROT",
		"EPRT",
		"EPSV",
		"REST STREAM",
		"SIZE",
		"MDTM",
		"MLST type*;size*;modify*;perm*;",
		"UTF8",
		"End",
	})
}

func cmdHELP(s *Session, args string) {
	if args == "" {
		verbs := make([]string, 0, len(commandTable))
		for v := range commandTable {
			verbs = append(verbs, v)
		}
		s.reply.SendMulti(214, append([]string{"Commands:"}, strings.Join(verbs, " ")))
		return
	}
	s.reply.Send(214, "No detailed help available for "+strings.ToUpper(args)+".")
}

func cmdOPTS(s *Session, args string) {
	verb, opt, _ := strings.Cut(strings.TrimSpace(args), " ")
	switch strings.ToUpper(verb) {
	case "UTF8":
		s.reply.Send(200, "UTF8 set to "+strings.ToUpper(opt))
	default:
		s.reply.Send(502, "Option not supported.")
	}
}

func cmdSTAT(s *Session, args string) {
	if args != "" {
		cmdLIST(s, args)
		return
	}
	s.reply.SendMulti(211, []string{
		"Status:",
		"Connected, state=" + s.state.String(),
		"End of status.",
	})
}

func cmdTYPE(s *Session, args string) {
	args = strings.ToUpper(strings.TrimSpace(args))
	switch {
	case strings.HasPrefix(args, "A"):
		s.typeCode = 'A'
	case strings.HasPrefix(args, "I"):
		s.typeCode = 'I'
	default:
		s.reply.Send(504, "Unsupported TYPE.")
		return
	}
	s.reply.Send(200, "Type set to "+args+".")
}

func cmdMODE(s *Session, args string) {
	if strings.ToUpper(strings.TrimSpace(args)) != "S" {
		s.reply.Send(504, "Only stream mode is supported.")
		return
	}
	s.reply.Send(200, "Mode set to S.")
}

func cmdSTRU(s *Session, args string) {
	if strings.ToUpper(strings.TrimSpace(args)) != "F" {
		s.reply.Send(504, "Only file structure is supported.")
		return
	}
	s.reply.Send(200, "Structure set to F.")
}
