package api

import (
	"fmt"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/roach88/rollcall/internal/engine"
	"github.com/roach88/rollcall/internal/fault"
	"github.com/roach88/rollcall/internal/mode"
	"github.com/roach88/rollcall/internal/reader"
)

type uidRequest struct {
	UID string `json:"uid" validate:"required"`
}

type cardNameRequest struct {
	UID  string `json:"uid" validate:"required"`
	Name string `json:"name"`
}

type modeRequest struct {
	Mode string `json:"mode" validate:"required"`
}

type simPlaceRequest struct {
	UID string `json:"uid" validate:"required"`
	ATR string `json:"atr"`
}

type statusResponse struct {
	Success bool `json:"success"`
	engine.Snapshot
}

func (s *Server) status(c *fiber.Ctx) error {
	return c.JSON(statusResponse{Success: true, Snapshot: s.engine.Status(c.UserContext())})
}

func (s *Server) startDetection(c *fiber.Ctx) error {
	started, err := s.engine.StartDetection(c.UserContext())
	if err != nil {
		return err
	}
	msg := "Card detection started"
	if !started {
		msg = "Card detection already running"
	}
	return c.JSON(fiber.Map{"success": true, "message": msg})
}

func (s *Server) stopDetection(c *fiber.Ctx) error {
	s.engine.StopDetection()
	return c.JSON(fiber.Map{"success": true, "message": "Card detection stopped"})
}

func (s *Server) pollStatus(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"success": true, "update": s.engine.PollUpdate()})
}

func (s *Server) getUID(c *fiber.Ctx) error {
	uid, err := s.engine.ReadCardUID()
	if fault.IsCardReadFailed(err) {
		return fiber.NewError(fiber.StatusBadRequest, "No card detected or failed to read UID")
	}
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"success": true, "uid": uid})
}

func (s *Server) getInfo(c *fiber.Ctx) error {
	info, err := s.engine.ReadCardInfo()
	if fault.IsCardReadFailed(err) {
		return fiber.NewError(fiber.StatusBadRequest, "No card detected or failed to read info")
	}
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"success": true, "info": info})
}

func (s *Server) getMode(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"success": true, "mode": s.engine.Mode()})
}

func (s *Server) setMode(c *fiber.Ctx) error {
	var req modeRequest
	if err := s.bind(c, "api.set_mode", &req); err != nil {
		return err
	}
	m, err := mode.Parse(req.Mode)
	if err != nil {
		return err
	}
	s.engine.SetMode(m)
	return c.JSON(fiber.Map{"success": true, "mode": m})
}

func (s *Server) saveCardName(c *fiber.Ctx) error {
	var req cardNameRequest
	if err := s.bind(c, "api.save_card_name", &req); err != nil {
		return err
	}
	if err := s.engine.SetCardName(c.UserContext(), req.UID, req.Name); err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"success": true,
		"message": fmt.Sprintf("Card name '%s' saved successfully", strings.TrimSpace(req.Name)),
	})
}

func (s *Server) getCardName(c *fiber.Ctx) error {
	uid := c.Query("uid")
	if uid == "" {
		return fault.Validation("api.get_card_name", "UID is required")
	}
	name, ok, err := s.engine.CardName(c.UserContext(), uid)
	if err != nil {
		return err
	}
	var out any
	if ok {
		out = name
	}
	return c.JSON(fiber.Map{"success": true, "name": out})
}

func (s *Server) getAllCardNames(c *fiber.Ctx) error {
	names, err := s.engine.CardNames(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"success": true, "cardNames": names})
}

func (s *Server) recordSignIn(c *fiber.Ctx) error {
	var req uidRequest
	if err := s.bind(c, "api.record_sign_in", &req); err != nil {
		return err
	}
	res, err := s.engine.RecordSignIn(c.UserContext(), req.UID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"success": true,
		"message": "Sign-in recorded for " + displayName(res),
		"name":    res.Name,
		"record":  res.Record,
	})
}

func (s *Server) recordSignOut(c *fiber.Ctx) error {
	var req uidRequest
	if err := s.bind(c, "api.record_sign_out", &req); err != nil {
		return err
	}
	res, err := s.engine.RecordSignOut(c.UserContext(), req.UID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"success": true,
		"message": fmt.Sprintf("Sign-out recorded for %s (%.2f hours)", displayName(res), res.Record.Hours),
		"name":    res.Name,
		"record":  res.Record,
	})
}

func (s *Server) attendanceStatus(c *fiber.Ctx) error {
	list, err := s.engine.AttendanceStatus(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"success": true, "attendance": list})
}

func (s *Server) personProfile(c *fiber.Ctx) error {
	uid := c.Query("uid")
	if uid == "" {
		return fault.Validation("api.person_profile", "UID is required")
	}
	p, err := s.engine.Profile(c.UserContext(), uid)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"success": true, "profile": p})
}

func (s *Server) syncNow(c *fiber.Ctx) error {
	if err := s.engine.SyncNow(c.UserContext()); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"success": true, "message": "Sync completed"})
}

func (s *Server) simPlace(c *fiber.Ctx) error {
	var req simPlaceRequest
	if err := s.bind(c, "api.sim_place", &req); err != nil {
		return err
	}
	var atr []byte
	if req.ATR != "" {
		var err error
		if atr, err = reader.ParseHex(req.ATR); err != nil {
			return err
		}
	}
	if err := s.sim.Place(req.UID, atr); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"success": true, "message": "Card placed"})
}

func (s *Server) simRemove(c *fiber.Ctx) error {
	s.sim.Remove()
	return c.JSON(fiber.Map{"success": true, "message": "Card removed"})
}

func displayName(res engine.ManualResult) string {
	if res.Name != "" {
		return res.Name
	}
	return res.UID
}
