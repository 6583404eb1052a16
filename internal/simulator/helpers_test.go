package simulator

import (
	"fmt"
	"time"

	"github.com/kanna-karuppasamy/building-energy-monitor/internal/catalog"
)

var (
	startTime = time.Date(2024, 11, 21, 9, 0, 0, 0, time.FixedZone("BST", 6*60*60))
)

// fixedRand always returns the same draw.
type fixedRand struct {
	f float64
}

func (r fixedRand) Float64() float64 { return r.f }
func (r fixedRand) IntN(int) int     { return 0 }

func r1Profile() catalog.RoomProfile {
	return catalog.RoomProfile{
		ID:        "R1",
		Floor:     1,
		Capacity:  40,
		Equipment: catalog.Equipment{AC: 1, Fan: 2, Light: 4, Projector: 1, PC: 1},
		Wattage:   catalog.Wattage{AC: 1500, Fan: 60, Light: 40, Projector: 150, PC: 200},
	}
}

func testRooms(n int) []catalog.RoomProfile {
	rooms := make([]catalog.RoomProfile, 0, n)
	for i := 0; i < n; i++ {
		p := r1Profile()
		p.ID = fmt.Sprintf("%d%02d", i/10+1, i%10+1)
		p.Floor = i/10 + 1
		p.Equipment.PC = 1 + i%3*10
		rooms = append(rooms, p)
	}
	return rooms
}

func testCatalog(n int) *catalog.Catalog {
	code, name := "CSE101", "Structured Programming"
	schedules := []catalog.ScheduleEntry{
		{RoomID: "101", CourseCode: &code, CourseName: &name},
	}
	c, err := catalog.New(testRooms(n), schedules)
	if err != nil {
		panic(err)
	}
	return c
}

func testBuilding(seed uint64) *Building {
	c := testCatalog(40)
	rng := NewRand(seed)
	occ, err := NewOccupancy(c.IDs(), rng)
	if err != nil {
		panic(err)
	}
	return NewBuilding(c, occ, rng)
}
